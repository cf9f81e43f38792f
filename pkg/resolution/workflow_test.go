package resolution_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/contact"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolution"
)

var (
	capturedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mergedAt   = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
)

var errOffline = stderrors.New("store offline")

// flakyStore fails selected operations of an in-memory store
type flakyStore struct {
	*contact.MemoryRepository
	failList   bool
	failGet    bool
	failCreate bool
	failUpdate bool
}

func (s *flakyStore) List(ctx context.Context) ([]models.Contact, error) {
	if s.failList {
		return nil, errOffline
	}
	return s.MemoryRepository.List(ctx)
}

func (s *flakyStore) Get(ctx context.Context, id string) (models.Contact, error) {
	if s.failGet {
		return models.Contact{}, errOffline
	}
	return s.MemoryRepository.Get(ctx, id)
}

func (s *flakyStore) Create(ctx context.Context, c models.Contact) (models.Contact, error) {
	if s.failCreate {
		return models.Contact{}, errOffline
	}
	return s.MemoryRepository.Create(ctx, c)
}

func (s *flakyStore) Update(ctx context.Context, c models.Contact) (models.Contact, error) {
	if s.failUpdate {
		return models.Contact{}, errOffline
	}
	return s.MemoryRepository.Update(ctx, c)
}

func storedAda() models.Contact {
	return models.Contact{
		ID:        "ada",
		Name:      "Ada Lovelace",
		Title:     "Analyst",
		Email:     "ada@engines.io",
		Notes:     "foo",
		CreatedAt: capturedAt,
		Source:    models.ProvenanceManual,
	}
}

func matchingCandidate() models.Contact {
	return models.Contact{
		Name:      "Ada Lovelace",
		Email:     "ADA@engines.io",
		Phone:     "555 0101",
		Notes:     "foo",
		CreatedAt: mergedAt.Add(-time.Hour),
		Source:    models.ProvenanceCamera,
	}
}

func unmatchedCandidate() models.Contact {
	return models.Contact{
		Name:   "Grace Hopper",
		Email:  "grace@navy.mil",
		Source: models.ProvenanceQR,
	}
}

func newStore(seed ...models.Contact) *flakyStore {
	return &flakyStore{MemoryRepository: contact.NewMemoryRepository(seed...)}
}

func newWorkflow(store resolution.Store) *resolution.Workflow {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	merger := merging.NewMerger(merging.WithClock(func() time.Time { return mergedAt }))
	return resolution.NewWorkflow(store, matching.NewMatcher(matching.DefaultConfig()), merger, logger)
}

func listIDs(t *testing.T, store resolution.Store) []string {
	t.Helper()
	contacts, err := store.List(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	return ids
}

func states(history []resolution.Transition) []models.ResolutionState {
	out := []models.ResolutionState{}
	for _, tr := range history {
		out = append(out, tr.To)
	}
	return out
}

func TestWorkflowTotality(t *testing.T) {
	tests := []struct {
		name         string
		matchPresent bool
		decision     models.Decision
		outcome      models.ResolutionKind
		storeSize    int
	}{
		{"no match saves without a decision", false, models.Decision{}, models.ResolutionSaveAsNew, 2},
		{"match then save as new", true, models.SaveAsNew(), models.ResolutionSaveAsNew, 2},
		{"match then replace", true, models.Replace("ada"), models.ResolutionReplace, 1},
		{"match then merge", true, models.Merge("ada"), models.ResolutionMerge, 1},
		{"match then abort", true, models.Abort(), models.ResolutionAbort, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(storedAda())
			workflow := newWorkflow(store)

			candidate := unmatchedCandidate()
			if tt.matchPresent {
				candidate = matchingCandidate()
			}

			require.NoError(t, workflow.Start(ctx, candidate))
			if tt.matchPresent {
				require.Equal(t, models.StateDeciding, workflow.State())
				require.NoError(t, workflow.Decide(ctx, tt.decision))
			}

			assert.Equal(t, models.StateDone, workflow.State())
			outcome := workflow.Outcome()
			require.NotNil(t, outcome)
			assert.Equal(t, tt.outcome, outcome.Kind)
			assert.Len(t, listIDs(t, store), tt.storeSize)

			history := states(workflow.History())
			assert.Equal(t, models.StateDone, history[len(history)-1])
			assert.Equal(t, 1, countState(history, models.StateDone), "exactly one terminal state")
		})
	}
}

func countState(history []models.ResolutionState, state models.ResolutionState) int {
	n := 0
	for _, s := range history {
		if s == state {
			n++
		}
	}
	return n
}

func TestWorkflowHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("no match", func(t *testing.T) {
		workflow := newWorkflow(newStore(storedAda()))
		require.NoError(t, workflow.Start(ctx, unmatchedCandidate()))

		assert.Equal(t, []models.ResolutionState{
			models.StateMatching, models.StateNoMatch, models.StateSavingNew, models.StateDone,
		}, states(workflow.History()))
		assert.Empty(t, workflow.Matches())
		assert.Nil(t, workflow.BestMatch())
	})

	t.Run("merge", func(t *testing.T) {
		workflow := newWorkflow(newStore(storedAda()))
		require.NoError(t, workflow.Start(ctx, matchingCandidate()))
		require.NoError(t, workflow.Decide(ctx, models.Merge("ada")))

		history := workflow.History()
		assert.Equal(t, models.StateIdle, history[0].From)
		assert.Equal(t, []models.ResolutionState{
			models.StateMatching, models.StateMatchFound, models.StateDeciding, models.StateMerging, models.StateDone,
		}, states(history))
	})
}

func TestWorkflowSurfacesBestMatch(t *testing.T) {
	ctx := context.Background()
	weaker := models.Contact{ID: "weaker", Name: "Someone Else", Email: "ada@engines.io"}
	workflow := newWorkflow(newStore(weaker, storedAda()))

	require.NoError(t, workflow.Start(ctx, matchingCandidate()))

	best := workflow.BestMatch()
	require.NotNil(t, best)
	assert.Equal(t, "ada", best.Contact.ID)
	assert.Equal(t, 0.6, best.Score)
	assert.Equal(t, []string{models.FieldEmail, models.FieldName}, best.MatchedFields)
	assert.Len(t, workflow.Matches(), 2)
}

func TestWorkflowAbortLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda())
	before, err := store.List(ctx)
	require.NoError(t, err)

	workflow := newWorkflow(store)
	require.NoError(t, workflow.Start(ctx, matchingCandidate()))
	require.NoError(t, workflow.Decide(ctx, models.Abort()))

	after, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Nil(t, workflow.Outcome().Contact)
	assert.Contains(t, states(workflow.History()), models.StateAborted)
}

func TestWorkflowMergeEqualNotes(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda())
	workflow := newWorkflow(store)

	require.NoError(t, workflow.Start(ctx, matchingCandidate()))
	require.NoError(t, workflow.Decide(ctx, models.Merge("ada")))

	merged, err := store.Get(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "foo", merged.Notes)
	assert.Equal(t, "Analyst", merged.Title)
	assert.Equal(t, "555 0101", merged.Phone)
	assert.Equal(t, models.ProvenanceCamera, merged.Source)
	assert.Equal(t, mergedAt, merged.CreatedAt)
	assert.Equal(t, merged, *workflow.Outcome().Contact)
}

func TestWorkflowReplace(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda())
	workflow := newWorkflow(store)
	candidate := matchingCandidate()

	require.NoError(t, workflow.Start(ctx, candidate))
	require.NoError(t, workflow.Decide(ctx, models.Replace("ada")))

	replaced, err := store.Get(ctx, "ada")
	require.NoError(t, err)
	expected := candidate
	expected.ID = "ada"
	assert.Equal(t, expected, replaced)
	assert.Empty(t, replaced.Title)
	assert.Equal(t, "ada", workflow.Outcome().TargetID)
}

func TestWorkflowValidatesBeforeMatching(t *testing.T) {
	store := newStore(storedAda())
	store.failList = true
	workflow := newWorkflow(store)

	err := workflow.Start(context.Background(), models.Contact{Email: "ada@engines.io"})

	require.Error(t, err)
	assert.True(t, ferrors.IsValidation(err))
	var contactErr *ferrors.ContactError
	require.ErrorAs(t, err, &contactErr)
	assert.Equal(t, "name", contactErr.Field)
	assert.Equal(t, models.StateIdle, workflow.State())
	assert.Empty(t, workflow.History())

	store.failList = false
	require.NoError(t, workflow.Start(context.Background(), unmatchedCandidate()), "an idle workflow can be started again")
}

func TestWorkflowReadFailureReturnsToIdle(t *testing.T) {
	store := newStore(storedAda())
	store.failList = true
	workflow := newWorkflow(store)

	err := workflow.Start(context.Background(), matchingCandidate())

	assert.True(t, ferrors.Is(err, ferrors.KindStoreReadFailure), "got: %v", err)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, models.StateIdle, workflow.State())
	assert.Equal(t, []models.ResolutionState{models.StateMatching, models.StateIdle}, states(workflow.History()))
}

func TestWorkflowWriteFailureRollsBackToDeciding(t *testing.T) {
	ctx := context.Background()

	t.Run("auto save", func(t *testing.T) {
		store := newStore(storedAda())
		store.failCreate = true
		workflow := newWorkflow(store)

		err := workflow.Start(ctx, unmatchedCandidate())
		assert.True(t, ferrors.IsStoreWriteFailure(err), "got: %v", err)
		assert.Equal(t, models.StateDeciding, workflow.State())
		assert.Equal(t, []string{"ada"}, listIDs(t, store))

		store.failCreate = false
		require.NoError(t, workflow.Decide(ctx, models.SaveAsNew()))
		assert.Equal(t, models.StateDone, workflow.State())
		assert.Len(t, listIDs(t, store), 2)
	})

	t.Run("merge", func(t *testing.T) {
		store := newStore(storedAda())
		store.failUpdate = true
		workflow := newWorkflow(store)

		require.NoError(t, workflow.Start(ctx, matchingCandidate()))
		err := workflow.Decide(ctx, models.Merge("ada"))

		assert.True(t, ferrors.IsStoreWriteFailure(err), "got: %v", err)
		var contactErr *ferrors.ContactError
		require.ErrorAs(t, err, &contactErr)
		assert.Equal(t, "ada", contactErr.TargetID)
		assert.Equal(t, "update", contactErr.Operation)
		assert.Equal(t, models.StateDeciding, workflow.State())

		unchanged, getErr := store.Get(ctx, "ada")
		require.NoError(t, getErr)
		assert.Equal(t, storedAda(), unchanged)

		require.NoError(t, workflow.Decide(ctx, models.Abort()))
		assert.Equal(t, models.StateDone, workflow.State())
	})

	t.Run("target read", func(t *testing.T) {
		store := newStore(storedAda())
		workflow := newWorkflow(store)
		require.NoError(t, workflow.Start(ctx, matchingCandidate()))

		store.failGet = true
		err := workflow.Decide(ctx, models.Replace("ada"))

		assert.True(t, ferrors.Is(err, ferrors.KindStoreReadFailure), "got: %v", err)
		assert.Equal(t, models.StateDeciding, workflow.State())
	})
}

func TestWorkflowMissingTargetFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda())
	workflow := newWorkflow(store)

	require.NoError(t, workflow.Start(ctx, matchingCandidate()))
	require.NoError(t, store.Delete(ctx, "ada"))

	err := workflow.Decide(ctx, models.Merge("ada"))
	require.Error(t, err)
	assert.True(t, ferrors.IsNotFound(err))
	var contactErr *ferrors.ContactError
	require.ErrorAs(t, err, &contactErr)
	assert.Equal(t, "ada", contactErr.TargetID)
	assert.Equal(t, models.StateDeciding, workflow.State())

	require.NoError(t, workflow.Decide(ctx, models.SaveAsNew()))
	assert.Equal(t, models.StateDone, workflow.State())
	assert.Len(t, listIDs(t, store), 1)
}

func TestWorkflowStaleMatches(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda())
	workflow := newWorkflow(store)

	require.NoError(t, workflow.Start(ctx, matchingCandidate()))

	// saved by a concurrent resolution after matching
	_, err := store.Create(ctx, models.Contact{ID: "ada-2", Name: "Ada Lovelace", Phone: "5550101"})
	require.NoError(t, err)

	err = workflow.Decide(ctx, models.SaveAsNew())
	assert.True(t, ferrors.Is(err, ferrors.KindStaleMatches), "got: %v", err)
	assert.Equal(t, models.StateDeciding, workflow.State())
	assert.Len(t, workflow.Matches(), 2, "matches are refreshed")

	require.NoError(t, workflow.Decide(ctx, models.SaveAsNew()), "refreshed matches are no longer stale")
	assert.Len(t, listIDs(t, store), 3)
}

func TestWorkflowRejectsUnsurfacedTarget(t *testing.T) {
	ctx := context.Background()
	store := newStore(storedAda(), models.Contact{ID: "grace", Name: "Grace Hopper"})
	workflow := newWorkflow(store)

	require.NoError(t, workflow.Start(ctx, matchingCandidate()))
	err := workflow.Decide(ctx, models.Replace("grace"))

	assert.True(t, ferrors.IsValidation(err))
	var contactErr *ferrors.ContactError
	require.ErrorAs(t, err, &contactErr)
	assert.Equal(t, "target_id", contactErr.Field)
	assert.Equal(t, models.StateDeciding, workflow.State())

	err = workflow.Decide(ctx, models.Decision{Kind: models.ResolutionMerge})
	assert.True(t, ferrors.IsValidation(err), "a merge needs a target")
}

func TestWorkflowInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	idle := newWorkflow(newStore())
	err := idle.Decide(ctx, models.Abort())
	assert.True(t, ferrors.Is(err, ferrors.KindInvalidTransition), "got: %v", err)

	done := newWorkflow(newStore())
	require.NoError(t, done.Start(ctx, unmatchedCandidate()))
	require.Equal(t, models.StateDone, done.State())

	err = done.Start(ctx, unmatchedCandidate())
	assert.True(t, ferrors.Is(err, ferrors.KindInvalidTransition), "got: %v", err)
	err = done.Decide(ctx, models.SaveAsNew())
	assert.True(t, ferrors.Is(err, ferrors.KindInvalidTransition), "got: %v", err)
}

func TestWorkflowDoesNotAliasCandidate(t *testing.T) {
	ctx := context.Background()
	candidate := matchingCandidate()
	candidate.Image = []byte{1, 2, 3}
	workflow := newWorkflow(newStore(storedAda()))

	require.NoError(t, workflow.Start(ctx, candidate))
	candidate.Image[0] = 9

	assert.Equal(t, byte(1), workflow.Candidate().Image[0])
}
