// Package contacts is the entry point for every contact operation. It
// serializes resolutions, parks those waiting for a decision and reports
// their outcomes.
package contacts

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/repositories/contact"
	appctx "github.com/Ramsey-B/fern/pkg/context"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/locking"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultSessionTTL is how long an undecided resolution is kept
const DefaultSessionTTL = 15 * time.Minute

// Emitter publishes contact lifecycle events
type Emitter interface {
	EmitOutcome(ctx context.Context, outcome *models.Outcome) error
	EmitContactDeleted(ctx context.Context, contactID string) error
}

// Config tunes the service
type Config struct {
	Matching       matching.Config
	NotesSeparator string
	SessionTTL     time.Duration
	LockBackend    string
}

// Service implements the contact operations
type Service struct {
	repo        contact.ContactRepository
	matcher     *matching.Matcher
	merger      *merging.Merger
	locker      locking.Locker
	lockBackend string
	emitter     Emitter
	sessions    *sessions
	logger      ectologger.Logger
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithEmitter enables event publishing
func WithEmitter(emitter Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithClock overrides the time source of merges and session expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new contact service
func NewService(repo contact.ContactRepository, locker locking.Locker, cfg Config, logger ectologger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        instrument(repo),
		matcher:     matching.NewMatcher(cfg.Matching),
		locker:      locker,
		lockBackend: cfg.LockBackend,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.lockBackend == "" {
		s.lockBackend = locking.BackendLocal
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s.sessions = newSessions(ttl, s.now)

	mergeOpts := []merging.Option{merging.WithClock(func() time.Time { return s.now().UTC() })}
	if cfg.NotesSeparator != "" {
		mergeOpts = append(mergeOpts, merging.WithNotesSeparator(cfg.NotesSeparator))
	}
	s.merger = merging.NewMerger(mergeOpts...)

	return s
}

// Now returns the service clock, used to stamp new candidates
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// List returns the stored contacts, newest first, filtered by search
func (s *Service) List(ctx context.Context, search string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.List")
	defer span.End()

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Contact, 0, len(all))
	for _, c := range all {
		if c.MatchesSearch(search) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Get retrieves a contact by id
func (s *Service) Get(ctx context.Context, id string) (models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.Get")
	defer span.End()

	return s.repo.Get(ctx, id)
}

// Export renders a contact for a native address book
func (s *Service) Export(ctx context.Context, id string) (models.DeviceContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.Export")
	defer span.End()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.DeviceContact{}, err
	}
	return c.ToDeviceContact(), nil
}

// Delete removes a contact. It waits for running resolutions so that none of
// them decides against a contact that is about to disappear.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.Delete")
	defer span.End()

	err := s.withLock(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	metrics.ContactsDeletedTotal.Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": id,
	}).Info("Deleted contact")

	if s.emitter != nil {
		err := s.emitter.EmitContactDeleted(ctx, id)
		metrics.RecordEventPublished(events.EventContactDeleted, err)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("contact deleted but the event was not published")
		}
	}
	return nil
}

// FindMatches ranks the stored contacts against candidate without starting
// a resolution
func (s *Service) FindMatches(ctx context.Context, candidate models.Contact) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.FindMatches")
	defer span.End()

	corpus, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	matches := s.matcher.FindDuplicates(candidate, corpus)
	metrics.RecordMatching(time.Since(start))

	return matches, nil
}

// Begin starts resolving candidate. A result without matches is terminal;
// otherwise the returned id identifies the parked resolution.
func (s *Service) Begin(ctx context.Context, candidate models.Contact) (models.ResolutionResponse, error) {
	return s.Resolve(ctx, candidate, nil)
}

// Resolve runs a resolution and, when matches are found and decision is set,
// applies the decision within the same exclusive section.
func (s *Service) Resolve(ctx context.Context, candidate models.Contact, decision *models.Decision) (models.ResolutionResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.Resolve")
	defer span.End()

	id := uuid.New().String()
	ctx = appctx.SetResolutionID(ctx, id)
	workflow := resolution.NewWorkflow(s.repo, s.matcher, s.merger, s.logger, resolution.WithClock(s.now))

	err := s.withLock(ctx, func(ctx context.Context) error {
		if err := workflow.Start(ctx, candidate); err != nil {
			return err
		}
		if workflow.State() != models.StateDeciding {
			return nil
		}

		for _, match := range workflow.Matches() {
			metrics.RecordMatch(string(match.Tier))
		}
		if decision == nil {
			return nil
		}
		return workflow.Decide(ctx, *decision)
	})

	return s.settle(ctx, id, workflow, err)
}

// Decide applies decision to a parked resolution
func (s *Service) Decide(ctx context.Context, id string, decision models.Decision) (models.ResolutionResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "contacts.Service.Decide")
	defer span.End()

	workflow, ok := s.sessions.get(id)
	if !ok {
		return models.ResolutionResponse{}, ferrors.NewSessionNotFoundError(id)
	}
	ctx = appctx.SetResolutionID(ctx, id)

	err := s.withLock(ctx, func(ctx context.Context) error {
		return workflow.Decide(ctx, decision)
	})

	return s.settle(ctx, id, workflow, err)
}

// Resolution describes a parked resolution
func (s *Service) Resolution(ctx context.Context, id string) (models.ResolutionResponse, error) {
	workflow, ok := s.sessions.get(id)
	if !ok {
		return models.ResolutionResponse{}, ferrors.NewSessionNotFoundError(id)
	}
	return responseFor(id, workflow), nil
}

// PendingResolutions returns the number of resolutions waiting for a decision
func (s *Service) PendingResolutions() int {
	return s.sessions.len()
}

// settle parks, drops or reports a workflow after a step
func (s *Service) settle(ctx context.Context, id string, workflow *resolution.Workflow, err error) (models.ResolutionResponse, error) {
	if err != nil {
		metrics.RecordResolutionError(string(ferrors.KindOf(err)))
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"state": workflow.State(),
		}).Warn("resolution step failed")
	}

	switch workflow.State() {
	case models.StateDeciding:
		s.sessions.put(id, workflow)
		return responseFor(id, workflow), err
	case models.StateDone:
		s.sessions.remove(id)
		if err != nil {
			// a concurrent step already finished this resolution
			return responseFor(id, workflow), err
		}
		outcome := workflow.Outcome()
		metrics.RecordResolution(string(outcome.Kind))
		s.publish(ctx, outcome)
		return responseFor(id, workflow), nil
	default:
		return responseFor("", workflow), err
	}
}

// publish is best effort: the store mutation stands even when no event goes out
func (s *Service) publish(ctx context.Context, outcome *models.Outcome) {
	if s.emitter == nil {
		return
	}
	eventType, ok := events.EventTypeFor(outcome.Kind)
	if !ok {
		return
	}

	err := s.emitter.EmitOutcome(ctx, outcome)
	metrics.RecordEventPublished(eventType, err)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"contact_id": outcome.TargetID,
		}).Warn("resolution finished but the event was not published")
	}
}

func (s *Service) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	return locking.WithLock(ctx, s.locker, s.logger, locking.ResolutionKey, func(ctx context.Context) error {
		metrics.RecordLockWait(s.lockBackend, time.Since(start))
		return fn(ctx)
	})
}

func responseFor(id string, workflow *resolution.Workflow) models.ResolutionResponse {
	return models.ResolutionResponse{
		ID:        id,
		State:     workflow.State(),
		Matches:   workflow.Matches(),
		BestMatch: workflow.BestMatch(),
		Outcome:   workflow.Outcome(),
	}
}
