package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imadgeboyega/orbit-backend/internal/profiles"
)

// fakeRepo is an in-memory Repository with the same conflict semantics as the
// Postgres implementation: unique keys, insert-or-ignore, guarded transitions.
type fakeRepo struct {
	mu sync.Mutex

	interactions map[[2]int64]string
	drops        map[string]*WeeklyDrop
	descriptions map[[2]int64]string
	eligible     []int64

	countInteractionsErr error
	insertDescriptionErr error
	listTargetsErr       error

	// beforeInsertDescription runs at the top of InsertDescription, outside
	// the lock, to simulate a concurrent writer landing first.
	beforeInsertDescription func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		interactions: make(map[[2]int64]string),
		drops:        make(map[string]*WeeklyDrop),
		descriptions: make(map[[2]int64]string),
	}
}

func dropKey(userID int64, weekStart time.Time) string {
	return fmt.Sprintf("%d/%s", userID, weekStart.Format("2006-01-02"))
}

func (f *fakeRepo) UpsertInteraction(ctx context.Context, userID, suggestedUserID int64, interactionType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions[[2]int64{userID, suggestedUserID}] = interactionType
	return nil
}

func (f *fakeRepo) CountInteractions(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countInteractionsErr != nil {
		return 0, f.countInteractionsErr
	}
	count := 0
	for key := range f.interactions {
		if key[0] == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) ListInteractionTargets(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listTargetsErr != nil {
		return nil, f.listTargetsErr
	}
	var ids []int64
	for key := range f.interactions {
		if key[0] == userID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (f *fakeRepo) GetWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyDrop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop, ok := f.drops[dropKey(userID, weekStart)]
	if !ok {
		return nil, ErrDropNotFound
	}
	copied := *drop
	return &copied, nil
}

func (f *fakeRepo) InsertWeeklyDrop(ctx context.Context, drop *WeeklyDrop) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dropKey(drop.UserID, drop.WeekStartDate)
	if _, exists := f.drops[key]; exists {
		return false, nil
	}
	copied := *drop
	f.drops[key] = &copied
	return true, nil
}

func (f *fakeRepo) TransitionWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time, toStatus string, interactedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop, ok := f.drops[dropKey(userID, weekStart)]
	if !ok || drop.Status != DropStatusShown {
		return false, nil
	}
	drop.Status = toStatus
	drop.InteractedAt = &interactedAt
	return true, nil
}

func (f *fakeRepo) ListDropCandidates(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, drop := range f.drops {
		if drop.UserID == userID && drop.CandidateUserID != nil {
			ids = append(ids, *drop.CandidateUserID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) GetDescription(ctx context.Context, userAID, userBID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, b := canonicalPair(userAID, userBID)
	description, ok := f.descriptions[[2]int64{a, b}]
	if !ok {
		return "", ErrDescriptionNotFound
	}
	return description, nil
}

func (f *fakeRepo) InsertDescription(ctx context.Context, userAID, userBID int64, description string) error {
	if f.beforeInsertDescription != nil {
		f.beforeInsertDescription()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertDescriptionErr != nil {
		return f.insertDescriptionErr
	}
	a, b := canonicalPair(userAID, userBID)
	key := [2]int64{a, b}
	if _, exists := f.descriptions[key]; exists {
		return nil
	}
	f.descriptions[key] = description
	return nil
}

func (f *fakeRepo) ListWeeklyEligibleUserIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.eligible...), nil
}

func (f *fakeRepo) dropCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drops)
}

func (f *fakeRepo) setDescription(a, b int64, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ca, cb := canonicalPair(a, b)
	f.descriptions[[2]int64{ca, cb}] = description
}

func (f *fakeRepo) interactionType(userID, suggestedUserID int64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.interactions[[2]int64{userID, suggestedUserID}]
	return t, ok
}

// fakeProfileStore serves canned profiles.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[int64]*profiles.MatchProfile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[int64]*profiles.MatchProfile)}
}

func (f *fakeProfileStore) add(id int64, name string, interests []string, composite, basic profiles.Vector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &profiles.MatchProfile{
		CompositeEmbedding: composite,
		BasicEmbedding:     basic,
	}
	p.ID = id
	p.DisplayName = name
	p.Interests = interests
	f.profiles[id] = p
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, userID int64) (*profiles.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, profiles.ErrProfileNotFound
	}
	copied := p.Profile
	return &copied, nil
}

func (f *fakeProfileStore) GetMatchProfile(ctx context.Context, userID int64) (*profiles.MatchProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, profiles.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

// fakeRelations satisfies RelationStore with fixed counts and a request log.
type fakeRelations struct {
	mu          sync.Mutex
	connections map[int64]int
	related     map[int64][]int64
	requests    [][2]int64
	requestErr  error
}

func newFakeRelations() *fakeRelations {
	return &fakeRelations{
		connections: make(map[int64]int),
		related:     make(map[int64][]int64),
	}
}

func (f *fakeRelations) CountConnections(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connections[userID], nil
}

func (f *fakeRelations) RelatedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.related[userID]...), nil
}

func (f *fakeRelations) SendConnectionRequest(ctx context.Context, senderID, receiverID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requests = append(f.requests, [2]int64{senderID, receiverID})
	return nil
}

func (f *fakeRelations) sentRequests() [][2]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]int64(nil), f.requests...)
}

// stubGenerator returns whatever its function says; nil generate fails.
type stubGenerator struct {
	mu       sync.Mutex
	calls    int
	generate func(a, b *profiles.Profile) (string, error)
}

func (g *stubGenerator) GenerateDescription(ctx context.Context, a, b *profiles.Profile, similarity float64) (string, error) {
	g.mu.Lock()
	g.calls++
	fn := g.generate
	g.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("generator unavailable")
	}
	return fn(a, b)
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// stubProvider is a canned selector tier.
type stubProvider struct {
	mu       sync.Mutex
	name     string
	servable bool
	hits     []profiles.SimilarUser
	err      error
	fetches  int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CanServe(profile *profiles.MatchProfile) bool { return p.servable }

func (p *stubProvider) Fetch(ctx context.Context, profile *profiles.MatchProfile) ([]profiles.SimilarUser, error) {
	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.hits, nil
}

func (p *stubProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}
