package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/orbit-backend/internal/profiles"
)

type serviceFixture struct {
	repo      *fakeRepo
	store     *fakeProfileStore
	relations *fakeRelations
	generator *stubGenerator
	provider  *stubProvider
	svc       *service
}

// newServiceFixture builds a service around in-memory fakes. The single stub
// tier serves candidates 2, 3 and 4 for any profile.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := newFakeRepo()
	store := newFakeProfileStore()
	relations := newFakeRelations()
	generator := &stubGenerator{
		generate: func(a, b *profiles.Profile) (string, error) {
			return fmt.Sprintf("%s and %s both like hiking", a.DisplayName, b.DisplayName), nil
		},
	}
	provider := &stubProvider{
		name:     "stub",
		servable: true,
		hits: []profiles.SimilarUser{
			{UserID: 2, Similarity: 0.9},
			{UserID: 3, Similarity: 0.8},
			{UserID: 4, Similarity: 0.7},
		},
	}

	store.add(1, "Ada", []string{"hiking"}, profiles.Vector{0.1}, nil)
	store.add(2, "Ben", []string{"hiking"}, nil, nil)
	store.add(3, "Cleo", []string{"cycling"}, nil, nil)
	store.add(4, "Dan", []string{"chess"}, nil, nil)

	selector := NewSelectorWithProviders(time.Second, provider)
	reasons := NewReasonCache(repo, store, generator, time.Second)

	svc := NewService(repo, store, relations, selector, reasons).(*service)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) // Wednesday
	}

	return &serviceFixture{
		repo:      repo,
		store:     store,
		relations: relations,
		generator: generator,
		provider:  provider,
		svc:       svc,
	}
}

func (f *serviceFixture) weekStart() time.Time {
	return WeekStart(f.svc.now())
}

func TestGetRecommendationsSuggestionMode(t *testing.T) {
	f := newServiceFixture(t)

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, ModeSuggestion, recs.Mode)
	require.Len(t, recs.Candidates, 3)
	assert.Equal(t, int64(2), recs.Candidates[0].ID)
	for _, c := range recs.Candidates {
		assert.NotEmpty(t, c.Reason)
	}
}

func TestGetRecommendationsSlotsShrinkWithInteractions(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.repo.UpsertInteraction(context.Background(), 1, 2, InteractionSkipped))
	require.NoError(t, f.repo.UpsertInteraction(context.Background(), 1, 3, InteractionSkipped))

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, ModeSuggestion, recs.Mode)
	// One slot left, and the two acted-on users are excluded.
	require.Len(t, recs.Candidates, 1)
	assert.Equal(t, int64(4), recs.Candidates[0].ID)
}

func TestGetRecommendationsDropsUnexplainableSuggestions(t *testing.T) {
	f := newServiceFixture(t)
	f.generator.generate = nil // every generation fails

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, ModeSuggestion, recs.Mode)
	assert.Empty(t, recs.Candidates)
}

func TestGetRecommendationsExcludesRelatedUsers(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.related[1] = []int64{2, 4}

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, recs.Candidates, 1)
	assert.Equal(t, int64(3), recs.Candidates[0].ID)
}

func TestGetRecommendationsSwitchesToWeeklyMode(t *testing.T) {
	f := newServiceFixture(t)

	// Three recorded interactions graduate the user.
	for _, target := range []int64{10, 11, 12} {
		require.NoError(t, f.repo.UpsertInteraction(context.Background(), 1, target, InteractionSkipped))
	}

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, ModeWeeklyDrop, recs.Mode)
	require.Len(t, recs.Candidates, 1)
	assert.NotEmpty(t, recs.Candidates[0].Reason)
}

func TestWeeklyDropPersistsAndShortCircuits(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	first, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, first.Candidates, 1)
	fetchesAfterFirst := f.provider.fetchCount()

	second, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, second.Candidates, 1)

	assert.Equal(t, first.Candidates[0].ID, second.Candidates[0].ID)
	// The second read must come from the stored row, not a fresh selection.
	assert.Equal(t, fetchesAfterFirst, f.provider.fetchCount())
	assert.Equal(t, 1, f.repo.dropCount())
}

func TestWeeklyDropNoMatchIsPersisted(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5
	f.provider.hits = nil

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, recs.Candidates)

	drop, err := f.repo.GetWeeklyDrop(context.Background(), 1, f.weekStart())
	require.NoError(t, err)
	assert.Equal(t, DropStatusNoMatch, drop.Status)

	// A no-match week stays empty without re-running selection.
	fetches := f.provider.fetchCount()
	again, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, again.Candidates)
	assert.Equal(t, fetches, f.provider.fetchCount())
}

func TestWeeklyDropKeepsCandidateWhenReasonFails(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5
	f.generator.generate = nil

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, recs.Candidates, 1)
	assert.Equal(t, "", recs.Candidates[0].Reason)
}

func TestWeeklyDropConcurrentCreation(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	const workers = 16
	results := make([]int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs, err := f.svc.GetRecommendations(context.Background(), 1)
			if err == nil && len(recs.Candidates) == 1 {
				results[i] = recs.Candidates[0].ID
			}
		}(i)
	}
	wg.Wait()

	// Exactly one drop row, and every caller saw its candidate.
	assert.Equal(t, 1, f.repo.dropCount())
	for i, id := range results {
		assert.Equal(t, int64(2), id, "worker %d", i)
	}
}

func TestRecordResponseSuggestionLedger(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.svc.RecordResponse(context.Background(), 1, 2, ActionSkipped))
	require.NoError(t, f.svc.RecordResponse(context.Background(), 1, 2, ActionConnected))

	// Re-recording overwrites: one row, latest action wins.
	recorded, ok := f.repo.interactionType(1, 2)
	require.True(t, ok)
	assert.Equal(t, InteractionConnected, recorded)

	requests := f.relations.sentRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, [2]int64{1, 2}, requests[0])
}

func TestRecordResponseRejectsHiddenInSuggestionMode(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.RecordResponse(context.Background(), 1, 2, ActionHidden)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestRecordResponseRejectsUnknownAction(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.RecordResponse(context.Background(), 1, 2, "superlike")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestRecordResponseConnectionFailureIsSwallowed(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.requestErr = fmt.Errorf("relations down")

	// The ledger write is the durable outcome; the request failure is not
	// surfaced to the caller.
	err := f.svc.RecordResponse(context.Background(), 1, 2, ActionConnected)
	assert.NoError(t, err)

	recorded, ok := f.repo.interactionType(1, 2)
	require.True(t, ok)
	assert.Equal(t, InteractionConnected, recorded)
}

func TestRecordResponseWeeklyTransition(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs.Candidates, 1)
	candidateID := recs.Candidates[0].ID

	require.NoError(t, f.svc.RecordResponse(context.Background(), 1, candidateID, ActionConnected))

	drop, err := f.repo.GetWeeklyDrop(context.Background(), 1, f.weekStart())
	require.NoError(t, err)
	assert.Equal(t, DropStatusConnected, drop.Status)
	assert.NotNil(t, drop.InteractedAt)

	requests := f.relations.sentRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, [2]int64{1, candidateID}, requests[0])

	// The drop is terminal now: a second verdict conflicts.
	err = f.svc.RecordResponse(context.Background(), 1, candidateID, ActionSkipped)
	assert.ErrorIs(t, err, ErrDropAlreadyClosed)
}

func TestRecordResponseWeeklyWrongCandidate(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	_, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	err = f.svc.RecordResponse(context.Background(), 1, 999, ActionSkipped)
	assert.ErrorIs(t, err, ErrNoActiveDrop)
}

func TestRecordResponseWeeklyWithoutDrop(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	err := f.svc.RecordResponse(context.Background(), 1, 2, ActionSkipped)
	assert.ErrorIs(t, err, ErrNoActiveDrop)
}

func TestRecordResponseWeeklyHidden(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)
	candidateID := recs.Candidates[0].ID

	require.NoError(t, f.svc.RecordResponse(context.Background(), 1, candidateID, ActionHidden))

	drop, err := f.repo.GetWeeklyDrop(context.Background(), 1, f.weekStart())
	require.NoError(t, err)
	assert.Equal(t, DropStatusHidden, drop.Status)
	// Hiding is not connecting: no request goes out.
	assert.Empty(t, f.relations.sentRequests())
}

func TestPastDropCandidatesAreExcluded(t *testing.T) {
	f := newServiceFixture(t)
	f.relations.connections[1] = 5

	// A previous week already offered user 2.
	lastWeek := f.weekStart().AddDate(0, 0, -7)
	candidate := int64(2)
	inserted, err := f.repo.InsertWeeklyDrop(context.Background(), &WeeklyDrop{
		UserID:          1,
		WeekStartDate:   lastWeek,
		CandidateUserID: &candidate,
		Status:          DropStatusSkipped,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, recs.Candidates, 1)
	assert.Equal(t, int64(3), recs.Candidates[0].ID)
}

func TestPrepareWeeklyDrops(t *testing.T) {
	f := newServiceFixture(t)
	f.store.add(5, "Eve", []string{"chess"}, profiles.Vector{0.2}, nil)
	f.repo.eligible = []int64{1, 5}

	require.NoError(t, f.svc.PrepareWeeklyDrops(context.Background()))
	assert.Equal(t, 2, f.repo.dropCount())

	// The job is idempotent: a second run changes nothing.
	fetches := f.provider.fetchCount()
	require.NoError(t, f.svc.PrepareWeeklyDrops(context.Background()))
	assert.Equal(t, 2, f.repo.dropCount())
	assert.Equal(t, fetches, f.provider.fetchCount())
}

func TestGetRecommendationsDegradesOnCountFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.countInteractionsErr = fmt.Errorf("ledger unavailable")

	recs, err := f.svc.GetRecommendations(context.Background(), 1)
	require.NoError(t, err)

	// The failed count defaults to zero and the user gets the full
	// suggestion view rather than an error.
	assert.Equal(t, ModeSuggestion, recs.Mode)
	assert.Len(t, recs.Candidates, 3)
}
