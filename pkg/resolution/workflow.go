// Package resolution drives a candidate contact from matching to exactly one
// terminal store mutation.
package resolution

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Store is the slice of the contact store a resolution needs
type Store interface {
	List(ctx context.Context) ([]models.Contact, error)
	Get(ctx context.Context, id string) (models.Contact, error)
	Create(ctx context.Context, contact models.Contact) (models.Contact, error)
	Update(ctx context.Context, contact models.Contact) (models.Contact, error)
}

// Transition is one entry of a workflow's history
type Transition struct {
	From models.ResolutionState `json:"from"`
	To   models.ResolutionState `json:"to"`
	At   time.Time              `json:"at"`
}

// Workflow resolves a single candidate. It is not reusable: once Done it
// rejects every further call.
type Workflow struct {
	mu sync.Mutex

	store   Store
	matcher *matching.Matcher
	merger  *merging.Merger
	logger  ectologger.Logger
	now     func() time.Time

	state     models.ResolutionState
	history   []Transition
	candidate models.Contact
	matches   []models.MatchResult
	outcome   *models.Outcome
}

// Option configures a Workflow
type Option func(*Workflow)

// WithClock overrides the timestamp source of the history
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// NewWorkflow creates an idle workflow
func NewWorkflow(store Store, matcher *matching.Matcher, merger *merging.Merger, logger ectologger.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		store:   store,
		matcher: matcher,
		merger:  merger,
		logger:  logger,
		now:     time.Now,
		state:   models.StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) State() models.ResolutionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) History() []Transition {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.history)
}

// Matches returns the ranked matches surfaced to the caller
func (w *Workflow) Matches() []models.MatchResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneMatches(w.matches)
}

// BestMatch returns the highest-scoring surfaced match, or nil
func (w *Workflow) BestMatch() *models.MatchResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.matches) == 0 {
		return nil
	}
	best := cloneMatches(w.matches[:1])[0]
	return &best
}

// Outcome returns the terminal result, or nil until the workflow is Done
func (w *Workflow) Outcome() *models.Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outcome == nil {
		return nil
	}
	outcome := *w.outcome
	if outcome.Contact != nil {
		c := outcome.Contact.Clone()
		outcome.Contact = &c
	}
	return &outcome
}

// Candidate returns the contact being resolved
func (w *Workflow) Candidate() models.Contact {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.candidate.Clone()
}

// Start validates candidate and matches it against a snapshot of the store.
// Without matches the candidate is saved straight away; otherwise the
// workflow waits in Deciding.
func (w *Workflow) Start(ctx context.Context, candidate models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "Workflow.Start")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != models.StateIdle {
		return ferrors.NewInvalidTransitionError(string(w.state), "start")
	}

	if _, err := utils.Validate(candidate); err != nil {
		return err
	}

	w.candidate = candidate.Clone()
	w.transition(ctx, models.StateMatching)

	corpus, err := w.store.List(ctx)
	if err != nil {
		w.transition(ctx, models.StateIdle)
		return readFailure("list", err)
	}

	w.matches = w.matcher.FindDuplicates(w.candidate, corpus)
	if len(w.matches) == 0 {
		w.transition(ctx, models.StateNoMatch)
		return w.saveNew(ctx)
	}

	w.transition(ctx, models.StateMatchFound)
	w.transition(ctx, models.StateDeciding)
	return nil
}

// Decide applies the caller's decision. Failures leave the workflow in
// Deciding so the caller can retry or choose another branch.
func (w *Workflow) Decide(ctx context.Context, decision models.Decision) error {
	ctx, span := tracing.StartSpan(ctx, "Workflow.Decide")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != models.StateDeciding {
		return ferrors.NewInvalidTransitionError(string(w.state), "decide")
	}

	if _, err := utils.Validate(decision); err != nil {
		return err
	}

	switch decision.Kind {
	case models.ResolutionAbort:
		w.transition(ctx, models.StateAborted)
		w.finish(ctx, &models.Outcome{Kind: models.ResolutionAbort})
		return nil
	case models.ResolutionSaveAsNew:
		if err := w.recheck(ctx); err != nil {
			return err
		}
		return w.saveNew(ctx)
	default:
		return w.apply(ctx, decision)
	}
}

// recheck guards a forced save against contacts saved after matching
func (w *Workflow) recheck(ctx context.Context) error {
	corpus, err := w.store.List(ctx)
	if err != nil {
		return readFailure("list", err)
	}

	fresh := w.matcher.FindDuplicates(w.candidate, corpus)
	var unseen []string
	for _, match := range fresh {
		if !w.surfaced(match.Contact.ID) {
			unseen = append(unseen, match.Contact.ID)
		}
	}
	if len(unseen) == 0 {
		return nil
	}

	w.matches = fresh
	w.logger.WithContext(ctx).WithFields(map[string]any{
		"unseen_matches": unseen,
	}).Warn("new matches appeared while deciding")
	return ferrors.NewStaleMatchesError(unseen)
}

func (w *Workflow) saveNew(ctx context.Context) error {
	w.transition(ctx, models.StateSavingNew)

	created, err := w.store.Create(ctx, w.candidate)
	if err != nil {
		w.transition(ctx, models.StateDeciding)
		return writeFailure("create", w.candidate.ID, err)
	}

	w.finish(ctx, &models.Outcome{
		Kind:     models.ResolutionSaveAsNew,
		TargetID: created.ID,
		Contact:  &created,
	})
	return nil
}

func (w *Workflow) apply(ctx context.Context, decision models.Decision) error {
	if !w.surfaced(decision.TargetID) {
		return ferrors.NewValidationError("target_id", "contact %s is not among the surfaced matches", decision.TargetID)
	}

	state := models.StateMerging
	if decision.Kind == models.ResolutionReplace {
		state = models.StateReplacing
	}
	w.transition(ctx, state)

	target, err := w.store.Get(ctx, decision.TargetID)
	if err != nil {
		w.transition(ctx, models.StateDeciding)
		if ferrors.IsNotFound(err) {
			return err
		}
		return readFailure("get", err)
	}

	var record models.Contact
	if decision.Kind == models.ResolutionReplace {
		record = w.merger.Replace(target, w.candidate)
	} else {
		record = w.merger.Merge(target, w.candidate)
	}

	updated, err := w.store.Update(ctx, record)
	if err != nil {
		w.transition(ctx, models.StateDeciding)
		if ferrors.IsNotFound(err) {
			return err
		}
		return writeFailure("update", record.ID, err)
	}

	w.finish(ctx, &models.Outcome{
		Kind:     decision.Kind,
		TargetID: updated.ID,
		Contact:  &updated,
	})
	return nil
}

func (w *Workflow) surfaced(id string) bool {
	return slices.ContainsFunc(w.matches, func(m models.MatchResult) bool {
		return m.Contact.ID == id
	})
}

func (w *Workflow) finish(ctx context.Context, outcome *models.Outcome) {
	w.outcome = outcome
	w.transition(ctx, models.StateDone)

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"outcome":   outcome.Kind,
		"target_id": outcome.TargetID,
	}).Info("resolution finished")
}

func (w *Workflow) transition(ctx context.Context, to models.ResolutionState) {
	from := w.state
	w.state = to
	w.history = append(w.history, Transition{From: from, To: to, At: w.now()})

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"from": from,
		"to":   to,
	}).Debug("resolution transition")
}

func readFailure(operation string, err error) error {
	if ferrors.KindOf(err) != "" {
		return err
	}
	return ferrors.NewStoreReadFailure(operation, err)
}

func writeFailure(operation, id string, err error) error {
	if ferrors.KindOf(err) != "" {
		return err
	}
	return ferrors.NewStoreWriteFailure(operation, id, err)
}

func cloneMatches(matches []models.MatchResult) []models.MatchResult {
	cloned := make([]models.MatchResult, len(matches))
	for i, m := range matches {
		m.Contact = m.Contact.Clone()
		m.MatchedFields = slices.Clone(m.MatchedFields)
		cloned[i] = m
	}
	return cloned
}
