package profiles

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetMatchProfile(ctx context.Context, userID int64) (*MatchProfile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	query := `
        SELECT id, display_name, bio, interests, created_at, updated_at
        FROM users
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *postgresRepository) GetMatchProfile(ctx context.Context, userID int64) (*MatchProfile, error) {
	var p MatchProfile
	query := `
        SELECT u.id, u.display_name, u.bio, u.interests, u.created_at, u.updated_at,
               e.composite_embedding, e.basic_embedding
        FROM users u
        LEFT JOIN user_embeddings e ON e.user_id = u.id
        WHERE u.id = $1
    `

	err := r.db.GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}
