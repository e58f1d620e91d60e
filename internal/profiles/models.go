package profiles

import (
	"time"

	"github.com/lib/pq"
)

// Profile represents the subset of a user's profile the engine consumes:
// identity, interests, bio. Embeddings are fetched separately since most
// callers never need them.
type Profile struct {
	ID          int64          `json:"id" db:"id"`
	DisplayName string         `json:"display_name" db:"display_name"`
	Bio         *string        `json:"bio,omitempty" db:"bio"`
	Interests   pq.StringArray `json:"interests" db:"interests"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// MatchProfile is a profile joined with its stored embeddings, used by the
// matchmaking engine. Either embedding may be nil when it has not been
// computed yet; computing embeddings happens outside this service.
type MatchProfile struct {
	Profile
	CompositeEmbedding Vector `json:"-" db:"composite_embedding"`
	BasicEmbedding     Vector `json:"-" db:"basic_embedding"`
}

// HasCompositeEmbedding reports whether the composite interest vector exists.
func (p *MatchProfile) HasCompositeEmbedding() bool {
	return len(p.CompositeEmbedding) > 0
}

// HasBasicEmbedding reports whether the basic interest vector exists.
func (p *MatchProfile) HasBasicEmbedding() bool {
	return len(p.BasicEmbedding) > 0
}

// BioText returns the bio or an empty string.
func (p *Profile) BioText() string {
	if p.Bio != nil {
		return *p.Bio
	}
	return ""
}

// SimilarUser is a single hit from a similarity index.
type SimilarUser struct {
	UserID     int64   `db:"user_id"`
	Similarity float64 `db:"similarity"`
}
