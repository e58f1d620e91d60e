package matchmaking

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/imadgeboyega/orbit-backend/internal/profiles"
)

// VectorSearch is one similarity index. The composite and basic indexes are
// two independent implementations of this.
type VectorSearch interface {
	Search(ctx context.Context, embedding profiles.Vector, threshold float64, topK int, excludeID int64) ([]profiles.SimilarUser, error)
}

// TagSearch is the lexical interest-overlap fallback index.
type TagSearch interface {
	SearchByTags(ctx context.Context, tags []string, topK int, excludeID int64) ([]profiles.SimilarUser, error)
}

// CandidateProvider is one strategy tier. Tiers are tried in registration
// order; the first tier that can serve the profile and yields at least one
// non-excluded candidate wins. Adding a tier is an append, call sites do not
// change.
type CandidateProvider interface {
	Name() string
	CanServe(p *profiles.MatchProfile) bool
	Fetch(ctx context.Context, p *profiles.MatchProfile) ([]profiles.SimilarUser, error)
}

type compositeProvider struct {
	index VectorSearch
}

func (cp *compositeProvider) Name() string { return "composite_vector" }

func (cp *compositeProvider) CanServe(p *profiles.MatchProfile) bool {
	return p.HasCompositeEmbedding()
}

func (cp *compositeProvider) Fetch(ctx context.Context, p *profiles.MatchProfile) ([]profiles.SimilarUser, error) {
	return cp.index.Search(ctx, p.CompositeEmbedding, SimilarityThreshold, VectorTopK, p.ID)
}

type basicProvider struct {
	index VectorSearch
}

func (bp *basicProvider) Name() string { return "basic_vector" }

func (bp *basicProvider) CanServe(p *profiles.MatchProfile) bool {
	return p.HasBasicEmbedding()
}

func (bp *basicProvider) Fetch(ctx context.Context, p *profiles.MatchProfile) ([]profiles.SimilarUser, error) {
	return bp.index.Search(ctx, p.BasicEmbedding, SimilarityThreshold, VectorTopK, p.ID)
}

type tagOverlapProvider struct {
	index TagSearch
}

func (tp *tagOverlapProvider) Name() string { return "tag_overlap" }

// CanServe: the lexical tier only runs for users with no embedding at all.
func (tp *tagOverlapProvider) CanServe(p *profiles.MatchProfile) bool {
	return !p.HasCompositeEmbedding() && !p.HasBasicEmbedding() && len(p.Interests) > 0
}

func (tp *tagOverlapProvider) Fetch(ctx context.Context, p *profiles.MatchProfile) ([]profiles.SimilarUser, error) {
	return tp.index.SearchByTags(ctx, p.Interests, TagTopK, p.ID)
}

// Selector walks the provider tiers, filters by the exclusion set, ranks and
// caps the survivors.
type Selector struct {
	providers []CandidateProvider
	timeout   time.Duration
}

// NewSelector builds the standard three-tier selector.
func NewSelector(composite, basic VectorSearch, tags TagSearch, timeout time.Duration) *Selector {
	return &Selector{
		providers: []CandidateProvider{
			&compositeProvider{index: composite},
			&basicProvider{index: basic},
			&tagOverlapProvider{index: tags},
		},
		timeout: timeout,
	}
}

// NewSelectorWithProviders is the injection point for tests and future tiers.
func NewSelectorWithProviders(timeout time.Duration, providers ...CandidateProvider) *Selector {
	return &Selector{providers: providers, timeout: timeout}
}

// Select returns up to `slots` ranked candidates for the profile, never an
// excluded id and never nil. A tier error or timeout is a tier miss and falls
// through to the next runnable tier, so one degraded index cannot take the
// whole pipeline down.
func (s *Selector) Select(ctx context.Context, p *profiles.MatchProfile, excluded map[int64]struct{}, slots int) []Candidate {
	if slots <= 0 {
		return []Candidate{}
	}

	for _, provider := range s.providers {
		if !provider.CanServe(p) {
			continue
		}

		tierCtx, cancel := context.WithTimeout(ctx, s.timeout)
		hits, err := provider.Fetch(tierCtx, p)
		cancel()
		if err != nil {
			log.Printf("matchmaking: tier %s failed for user %d: %v", provider.Name(), p.ID, err)
			recordTierAttempt(provider.Name(), "error")
			continue
		}

		candidates := rankAndCap(hits, excluded, slots)
		if len(candidates) == 0 {
			recordTierAttempt(provider.Name(), "empty")
			continue
		}

		recordTierAttempt(provider.Name(), "win")
		for _, c := range candidates {
			if c.Similarity != nil {
				candidateSimilarity.Observe(*c.Similarity)
			}
		}
		return candidates
	}

	return []Candidate{}
}

// rankAndCap filters out excluded ids, orders by descending similarity with
// ties keeping source order, and truncates to the slot cap.
func rankAndCap(hits []profiles.SimilarUser, excluded map[int64]struct{}, slots int) []Candidate {
	kept := make([]profiles.SimilarUser, 0, len(hits))
	for _, hit := range hits {
		if _, skip := excluded[hit.UserID]; skip {
			continue
		}
		kept = append(kept, hit)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	if len(kept) > slots {
		kept = kept[:slots]
	}

	candidates := make([]Candidate, 0, len(kept))
	for _, hit := range kept {
		sim := hit.Similarity
		candidates = append(candidates, Candidate{ID: hit.UserID, Similarity: &sim})
	}
	return candidates
}
