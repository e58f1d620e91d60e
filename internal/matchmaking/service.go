package matchmaking

import (
	"context"
	"errors"
	"log"
	"time"
)

var (
	ErrInvalidAction     = errors.New("invalid response action")
	ErrNoActiveDrop      = errors.New("no active weekly drop for this candidate")
	ErrDropAlreadyClosed = errors.New("weekly drop already resolved")
)

// RelationStore is the engine's view of the relation/connection service.
type RelationStore interface {
	CountConnections(ctx context.Context, userID int64) (int, error)
	RelatedUserIDs(ctx context.Context, userID int64) ([]int64, error)
	SendConnectionRequest(ctx context.Context, senderID, receiverID int64) error
}

type Service interface {
	GetRecommendations(ctx context.Context, userID int64) (*Recommendations, error)
	RecordResponse(ctx context.Context, userID, candidateID int64, action string) error
	PrepareWeeklyDrops(ctx context.Context) error
}

type service struct {
	repo      Repository
	store     ProfileStore
	relations RelationStore
	selector  *Selector
	reasons   *ReasonCache
	graph     *RelationGraphView
	now       func() time.Time
}

// NewService wires the engine together. The exclusion view is assembled here
// so every source the selector must honor lives in one list.
func NewService(repo Repository, store ProfileStore, relations RelationStore, selector *Selector, reasons *ReasonCache) Service {
	s := &service{
		repo:      repo,
		store:     store,
		relations: relations,
		selector:  selector,
		reasons:   reasons,
		now:       time.Now,
	}

	s.graph = NewRelationGraphView(
		ExclusionSource{Name: "relations", Fetch: relations.RelatedUserIDs},
		ExclusionSource{Name: "interactions", Fetch: repo.ListInteractionTargets},
		ExclusionSource{Name: "weekly_drops", Fetch: repo.ListDropCandidates},
	)

	return s
}

// GetRecommendations routes the user to suggestion or weekly-drop mode and
// always returns a well-formed result. Degraded lookups shrink the result,
// they never abort it.
func (s *service) GetRecommendations(ctx context.Context, userID int64) (*Recommendations, error) {
	connectionCount, interactionCount := s.counts(ctx, userID)

	if ModeFor(connectionCount, interactionCount) == ModeWeeklyDrop {
		return s.weeklyDropRecommendations(ctx, userID)
	}
	return s.suggestionRecommendations(ctx, userID, interactionCount)
}

// counts reads the two eligibility inputs. A failing count defaults to zero:
// under-counting can only demote a user to the richer suggestion mode for one
// request, which is harmless.
func (s *service) counts(ctx context.Context, userID int64) (int, int) {
	connectionCount, err := s.relations.CountConnections(ctx, userID)
	if err != nil {
		log.Printf("matchmaking: connection count failed for user %d: %v", userID, err)
		connectionCount = 0
	}

	interactionCount, err := s.repo.CountInteractions(ctx, userID)
	if err != nil {
		log.Printf("matchmaking: interaction count failed for user %d: %v", userID, err)
		interactionCount = 0
	}

	return connectionCount, interactionCount
}

func (s *service) suggestionRecommendations(ctx context.Context, userID int64, interactionCount int) (*Recommendations, error) {
	result := &Recommendations{Mode: ModeSuggestion, Candidates: []Candidate{}}

	slots := RemainingSuggestionSlots(interactionCount)
	if slots == 0 {
		return result, nil
	}

	profile, err := s.store.GetMatchProfile(ctx, userID)
	if err != nil {
		log.Printf("matchmaking: match profile lookup failed for user %d: %v", userID, err)
		return result, nil
	}

	excluded := s.graph.ExcludedIDs(ctx, userID)
	candidates := s.selector.Select(ctx, profile, excluded, slots)

	// Suggestion-mode policy: a candidate we cannot explain is dropped
	// rather than shown bare.
	annotated := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		reason, ok := s.reasons.GetOrGenerate(ctx, userID, c.ID, similarityOf(c))
		if !ok {
			continue
		}
		c.Reason = reason
		annotated = append(annotated, c)
	}

	result.Candidates = annotated
	return result, nil
}

func (s *service) weeklyDropRecommendations(ctx context.Context, userID int64) (*Recommendations, error) {
	result := &Recommendations{Mode: ModeWeeklyDrop, Candidates: []Candidate{}}

	weekStart := WeekStart(s.now())
	drop, err := s.ensureWeeklyDrop(ctx, userID, weekStart)
	if err != nil {
		log.Printf("matchmaking: weekly drop resolution failed for user %d: %v", userID, err)
		return result, nil
	}

	// Only an open SHOWN drop is presented; terminal drops (including
	// no_match) mean nothing more this week.
	if drop.Status != DropStatusShown || drop.CandidateUserID == nil {
		return result, nil
	}

	candidate := Candidate{ID: *drop.CandidateUserID, Similarity: drop.SimilarityScore}

	// Weekly-drop policy: the single candidate survives a missing reason
	// with an empty string rather than being dropped.
	if reason, ok := s.reasons.GetOrGenerate(ctx, userID, candidate.ID, similarityOf(candidate)); ok {
		candidate.Reason = reason
	}

	result.Candidates = []Candidate{candidate}
	return result, nil
}

// ensureWeeklyDrop returns the persisted drop for (user, week), creating it
// if this is the first read. Any existing row short-circuits selection, so
// selection runs at most once per user per week no matter how many callers
// race.
func (s *service) ensureWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyDrop, error) {
	drop, err := s.repo.GetWeeklyDrop(ctx, userID, weekStart)
	if err == nil {
		return drop, nil
	}
	if err != ErrDropNotFound {
		return nil, err
	}

	profile, err := s.store.GetMatchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := s.graph.ExcludedIDs(ctx, userID)
	candidates := s.selector.Select(ctx, profile, excluded, 1)

	fresh := &WeeklyDrop{UserID: userID, WeekStartDate: weekStart}
	if len(candidates) == 0 {
		// Persisted immediately so later page loads this week skip the
		// expensive selection entirely.
		fresh.Status = DropStatusNoMatch
	} else {
		now := s.now()
		chosen := candidates[0]
		fresh.Status = DropStatusShown
		fresh.CandidateUserID = &chosen.ID
		fresh.SimilarityScore = chosen.Similarity
		fresh.ShownAt = &now
	}

	inserted, err := s.repo.InsertWeeklyDrop(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the creation race: discard the locally computed candidate
		// and adopt whatever the winner persisted.
		dropInsertConflicts.Inc()
		return s.repo.GetWeeklyDrop(ctx, userID, weekStart)
	}

	recordDropCreated(fresh.Status)
	return fresh, nil
}

// RecordResponse applies a user's verdict on a candidate. The current mode
// decides where it lands: a weekly-drop transition or a ledger upsert.
func (s *service) RecordResponse(ctx context.Context, userID, candidateID int64, action string) error {
	if action != ActionConnected && action != ActionSkipped && action != ActionHidden {
		return ErrInvalidAction
	}

	connectionCount, interactionCount := s.counts(ctx, userID)
	mode := ModeFor(connectionCount, interactionCount)

	if mode == ModeWeeklyDrop {
		if err := s.respondToDrop(ctx, userID, candidateID, action); err != nil {
			return err
		}
	} else {
		// hidden only exists for weekly drops.
		if action == ActionHidden {
			return ErrInvalidAction
		}
		if err := s.repo.UpsertInteraction(ctx, userID, candidateID, action); err != nil {
			return err
		}
	}

	recordResponse(mode, action)

	if action == ActionConnected {
		// The connection request is the observable side effect of accepting
		// a candidate. Its failure is logged, not surfaced: the recorded
		// response is already durable.
		if err := s.relations.SendConnectionRequest(ctx, userID, candidateID); err != nil {
			log.Printf("matchmaking: connection request failed from %d to %d: %v", userID, candidateID, err)
		}
	}

	return nil
}

func (s *service) respondToDrop(ctx context.Context, userID, candidateID int64, action string) error {
	weekStart := WeekStart(s.now())

	drop, err := s.repo.GetWeeklyDrop(ctx, userID, weekStart)
	if err == ErrDropNotFound {
		return ErrNoActiveDrop
	}
	if err != nil {
		return err
	}
	if drop.CandidateUserID == nil || *drop.CandidateUserID != candidateID {
		return ErrNoActiveDrop
	}

	transitioned, err := s.repo.TransitionWeeklyDrop(ctx, userID, weekStart, action, s.now())
	if err != nil {
		return err
	}
	if !transitioned {
		return ErrDropAlreadyClosed
	}

	recordDropTransition(action)
	return nil
}

// PrepareWeeklyDrops pre-creates the current week's drop for every user
// already on the weekly cadence. It reuses the exact on-demand path, so a
// user who raced the job simply finds the row already there.
func (s *service) PrepareWeeklyDrops(ctx context.Context) error {
	userIDs, err := s.repo.ListWeeklyEligibleUserIDs(ctx)
	if err != nil {
		return err
	}

	weekStart := WeekStart(s.now())
	prepared := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.ensureWeeklyDrop(ctx, userID, weekStart); err != nil {
			log.Printf("matchmaking: weekly pre-generation failed for user %d: %v", userID, err)
			continue
		}
		prepared++
	}

	log.Printf("matchmaking: weekly pre-generation prepared %d/%d drops for week %s",
		prepared, len(userIDs), weekStart.Format("2006-01-02"))
	return nil
}

func similarityOf(c Candidate) float64 {
	if c.Similarity != nil {
		return *c.Similarity
	}
	return 0
}
