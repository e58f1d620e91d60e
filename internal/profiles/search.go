package profiles

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// VectorIndex runs cosine-similarity search over one pgvector column of the
// user_embeddings table. The composite and basic indexes are two instances of
// this type pointed at different columns; they know nothing about each other.
type VectorIndex struct {
	db     *sqlx.DB
	column string
}

// NewCompositeIndex searches the composite interest embedding.
func NewCompositeIndex(db *sqlx.DB) *VectorIndex {
	return &VectorIndex{db: db, column: "composite_embedding"}
}

// NewBasicIndex searches the basic interest embedding.
func NewBasicIndex(db *sqlx.DB) *VectorIndex {
	return &VectorIndex{db: db, column: "basic_embedding"}
}

// Search returns up to topK users whose stored vector is within the cosine
// similarity threshold, best first. The querying user is excluded in SQL so a
// user can never be their own candidate.
func (idx *VectorIndex) Search(ctx context.Context, embedding Vector, threshold float64, topK int, excludeID int64) ([]SimilarUser, error) {
	// The column name comes from the two constructors above, never from input.
	query := fmt.Sprintf(`
        SELECT user_id, 1 - (%s <=> $1) AS similarity
        FROM user_embeddings
        WHERE %s IS NOT NULL
              AND user_id != $2
              AND 1 - (%s <=> $1) >= $3
        ORDER BY %s <=> $1
        LIMIT $4
    `, idx.column, idx.column, idx.column, idx.column)

	var hits []SimilarUser
	if err := idx.db.SelectContext(ctx, &hits, query, embedding, excludeID, threshold, topK); err != nil {
		return nil, err
	}

	return hits, nil
}

// TagIndex ranks users by raw interest-tag overlap. It is the last-resort
// lexical fallback for users with no stored embedding at all, so the score it
// reports is the overlap count normalized by the candidate's tag count.
type TagIndex struct {
	db *sqlx.DB
}

func NewTagIndex(db *sqlx.DB) *TagIndex {
	return &TagIndex{db: db}
}

// SearchByTags returns up to topK users sharing at least one interest with
// the given tag list, ordered by shared-tag count descending.
func (idx *TagIndex) SearchByTags(ctx context.Context, tags []string, topK int, excludeID int64) ([]SimilarUser, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	query := `
        SELECT id AS user_id,
               cardinality(ARRAY(SELECT unnest(interests) INTERSECT SELECT unnest($1::text[])))::float
                   / GREATEST(cardinality(interests), 1) AS similarity
        FROM users
        WHERE id != $2
              AND interests && $1::text[]
        ORDER BY similarity DESC, id
        LIMIT $3
    `

	var hits []SimilarUser
	if err := idx.db.SelectContext(ctx, &hits, query, pq.Array(tags), excludeID, topK); err != nil {
		return nil, err
	}

	return hits, nil
}
