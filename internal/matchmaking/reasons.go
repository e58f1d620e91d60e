package matchmaking

import (
	"context"
	"log"
	"time"

	"github.com/imadgeboyega/orbit-backend/internal/profiles"
)

// ReasonCache is the content-addressed cache of pairwise compatibility text.
// Lookups are symmetric: the pair key is canonically ordered before touching
// storage, so (a, b) and (b, a) resolve to the same row.
type ReasonCache struct {
	repo      Repository
	store     ProfileStore
	generator TextGenerator
	timeout   time.Duration
}

func NewReasonCache(repo Repository, store ProfileStore, generator TextGenerator, timeout time.Duration) *ReasonCache {
	return &ReasonCache{
		repo:      repo,
		store:     store,
		generator: generator,
		timeout:   timeout,
	}
}

// GetOrGenerate returns the cached description for the pair, generating and
// writing it through on a miss. The second return value is false when no text
// could be produced; the caller decides whether that drops the candidate or
// degrades to an empty string.
//
// Concurrent misses for the same pair may both generate and both write. That
// is tolerated: the insert ignores the uniqueness conflict and the surviving
// row is re-read, because both writers held equivalent content anyway.
func (c *ReasonCache) GetOrGenerate(ctx context.Context, userA, userB int64, similarity float64) (string, bool) {
	description, err := c.repo.GetDescription(ctx, userA, userB)
	if err == nil {
		recordReasonLookup("hit")
		return description, true
	}
	if err != ErrDescriptionNotFound {
		log.Printf("matchmaking: description lookup failed for pair (%d,%d): %v", userA, userB, err)
		recordReasonLookup("failed")
		return "", false
	}

	// Generation and the write-through run detached from the caller: the
	// cache is shared, so an abandoned request should still finish warming
	// it for future readers.
	detached := context.WithoutCancel(ctx)

	text, ok := c.generate(detached, userA, userB, similarity)
	if !ok {
		recordReasonLookup("failed")
		return "", false
	}

	if err := c.repo.InsertDescription(detached, userA, userB, text); err != nil {
		// A lost write race is fine, but re-read so everyone serves the
		// winner's text.
		if stored, readErr := c.repo.GetDescription(detached, userA, userB); readErr == nil {
			recordReasonLookup("generated")
			return stored, true
		}
		log.Printf("matchmaking: description write failed for pair (%d,%d): %v", userA, userB, err)
	}

	recordReasonLookup("generated")
	return text, true
}

func (c *ReasonCache) generate(ctx context.Context, userA, userB int64, similarity float64) (string, bool) {
	profileA, err := c.store.GetProfile(ctx, userA)
	if err != nil {
		log.Printf("matchmaking: profile %d lookup failed for reason generation: %v", userA, err)
		return "", false
	}
	profileB, err := c.store.GetProfile(ctx, userB)
	if err != nil {
		log.Printf("matchmaking: profile %d lookup failed for reason generation: %v", userB, err)
		return "", false
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.generator.GenerateDescription(genCtx, profileA, profileB, similarity)
	if err != nil {
		log.Printf("matchmaking: reason generation failed for pair (%d,%d): %v", userA, userB, err)
		return "", false
	}
	if text == "" {
		return "", false
	}

	return text, true
}

// ProfileStore is the engine's view of the profile service.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*profiles.Profile, error)
	GetMatchProfile(ctx context.Context, userID int64) (*profiles.MatchProfile, error)
}
