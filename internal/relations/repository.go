package relations

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrRelationNotFound = errors.New("relation not found")

type Repository interface {
	CreateRequest(ctx context.Context, senderID, receiverID int64) (*Relation, error)
	GetRelation(ctx context.Context, id int64) (*Relation, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListEdges(ctx context.Context, userID int64) ([]Edge, error)
	CountAccepted(ctx context.Context, userID int64) (int, error)
	GetUserContact(ctx context.Context, userID int64) (*Contact, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// CreateRequest inserts a pending relation. A repeat request for the same
// (sender, receiver) pair is a no-op that returns the existing row, so
// issuing a request is idempotent.
func (r *postgresRepository) CreateRequest(ctx context.Context, senderID, receiverID int64) (*Relation, error) {
	query := `
        INSERT INTO relations (sender_id, receiver_id, status)
        VALUES ($1, $2, $3)
        ON CONFLICT (sender_id, receiver_id) DO NOTHING
        RETURNING id, sender_id, receiver_id, status, responded_at, created_at
    `

	var rel Relation
	err := r.db.GetContext(ctx, &rel, query, senderID, receiverID, StatusPending)
	if err == sql.ErrNoRows {
		// Conflict: the request already exists, hand back the stored row.
		return r.getByPair(ctx, senderID, receiverID)
	}
	if err != nil {
		return nil, err
	}

	return &rel, nil
}

func (r *postgresRepository) getByPair(ctx context.Context, senderID, receiverID int64) (*Relation, error) {
	var rel Relation
	query := `
        SELECT id, sender_id, receiver_id, status, responded_at, created_at
        FROM relations
        WHERE sender_id = $1 AND receiver_id = $2
    `

	err := r.db.GetContext(ctx, &rel, query, senderID, receiverID)
	if err == sql.ErrNoRows {
		return nil, ErrRelationNotFound
	}
	return &rel, err
}

func (r *postgresRepository) GetRelation(ctx context.Context, id int64) (*Relation, error) {
	var rel Relation
	query := `
        SELECT id, sender_id, receiver_id, status, responded_at, created_at
        FROM relations
        WHERE id = $1
    `

	err := r.db.GetContext(ctx, &rel, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrRelationNotFound
	}
	return &rel, err
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
        UPDATE relations
        SET status = $2, responded_at = CURRENT_TIMESTAMP
        WHERE id = $1
    `

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

// ListEdges returns every pending or accepted relation touching the user,
// collapsed to (other user, status). This is the single query behind the
// "connected OR pending, either direction" checks.
func (r *postgresRepository) ListEdges(ctx context.Context, userID int64) ([]Edge, error) {
	query := `
        SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id,
               status
        FROM relations
        WHERE (sender_id = $1 OR receiver_id = $1)
              AND status IN ($2, $3)
    `

	var edges []Edge
	err := r.db.SelectContext(ctx, &edges, query, userID, StatusPending, StatusAccepted)
	return edges, err
}

func (r *postgresRepository) CountAccepted(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `
        SELECT COUNT(*)
        FROM relations
        WHERE (sender_id = $1 OR receiver_id = $1) AND status = $2
    `

	err := r.db.GetContext(ctx, &count, query, userID, StatusAccepted)
	return count, err
}

func (r *postgresRepository) GetUserContact(ctx context.Context, userID int64) (*Contact, error) {
	var c Contact
	query := `SELECT display_name, email FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &c, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrRelationNotFound
	}
	return &c, err
}
