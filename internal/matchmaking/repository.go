package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrDropNotFound        = errors.New("weekly drop not found")
	ErrDescriptionNotFound = errors.New("compatibility description not found")
)

// Repository is the engine's own persistence: the suggestion ledger, weekly
// drop rows and the pairwise description cache. All upserts rely on unique
// constraints so concurrent writers converge instead of erroring.
type Repository interface {
	// Suggestion ledger
	UpsertInteraction(ctx context.Context, userID, suggestedUserID int64, interactionType string) error
	CountInteractions(ctx context.Context, userID int64) (int, error)
	ListInteractionTargets(ctx context.Context, userID int64) ([]int64, error)

	// Weekly drops
	GetWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyDrop, error)
	InsertWeeklyDrop(ctx context.Context, drop *WeeklyDrop) (bool, error)
	TransitionWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time, toStatus string, interactedAt time.Time) (bool, error)
	ListDropCandidates(ctx context.Context, userID int64) ([]int64, error)

	// Description cache
	GetDescription(ctx context.Context, userAID, userBID int64) (string, error)
	InsertDescription(ctx context.Context, userAID, userBID int64, description string) error

	// Batch job support
	ListWeeklyEligibleUserIDs(ctx context.Context) ([]int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// UpsertInteraction records the latest outcome for a (user, candidate) pair.
// A second action for the same pair overwrites the first, so skip-then-connect
// leaves exactly one row of type connected.
func (r *postgresRepository) UpsertInteraction(ctx context.Context, userID, suggestedUserID int64, interactionType string) error {
	query := `
        INSERT INTO suggestion_interactions (user_id, suggested_user_id, interaction_type)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, suggested_user_id)
        DO UPDATE SET interaction_type = $3, created_at = CURRENT_TIMESTAMP
    `

	_, err := r.db.ExecContext(ctx, query, userID, suggestedUserID, interactionType)
	return err
}

func (r *postgresRepository) CountInteractions(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM suggestion_interactions WHERE user_id = $1`

	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// ListInteractionTargets returns every user this user has acted on,
// regardless of outcome. Both connects and skips are permanent exclusions.
func (r *postgresRepository) ListInteractionTargets(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT suggested_user_id FROM suggestion_interactions WHERE user_id = $1`

	err := r.db.SelectContext(ctx, &ids, query, userID)
	return ids, err
}

func (r *postgresRepository) GetWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyDrop, error) {
	var drop WeeklyDrop
	query := `
        SELECT user_id, week_start_date, candidate_user_id, similarity_score,
               status, shown_at, interacted_at
        FROM weekly_drops
        WHERE user_id = $1 AND week_start_date = $2
    `

	err := r.db.GetContext(ctx, &drop, query, userID, weekStart)
	if err == sql.ErrNoRows {
		return nil, ErrDropNotFound
	}
	if err != nil {
		return nil, err
	}

	return &drop, nil
}

// InsertWeeklyDrop creates the row for (user, week). Returns false without
// error when another writer got there first: the unique constraint makes the
// race benign and the caller is expected to re-read the winning row.
func (r *postgresRepository) InsertWeeklyDrop(ctx context.Context, drop *WeeklyDrop) (bool, error) {
	query := `
        INSERT INTO weekly_drops (
            user_id, week_start_date, candidate_user_id, similarity_score, status, shown_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, week_start_date) DO NOTHING
    `

	result, err := r.db.ExecContext(
		ctx, query,
		drop.UserID, drop.WeekStartDate, drop.CandidateUserID,
		drop.SimilarityScore, drop.Status, drop.ShownAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// TransitionWeeklyDrop moves a SHOWN drop to a terminal status. Returns false
// when the row was missing or already terminal — the status guard in the
// WHERE clause makes the transition atomic.
func (r *postgresRepository) TransitionWeeklyDrop(ctx context.Context, userID int64, weekStart time.Time, toStatus string, interactedAt time.Time) (bool, error) {
	query := `
        UPDATE weekly_drops
        SET status = $3, interacted_at = $4
        WHERE user_id = $1 AND week_start_date = $2 AND status = $5
    `

	result, err := r.db.ExecContext(ctx, query, userID, weekStart, toStatus, interactedAt, DropStatusShown)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// ListDropCandidates returns every candidate ever drawn for this user across
// all weeks. Past drops never re-surface.
func (r *postgresRepository) ListDropCandidates(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `
        SELECT candidate_user_id
        FROM weekly_drops
        WHERE user_id = $1 AND candidate_user_id IS NOT NULL
    `

	err := r.db.SelectContext(ctx, &ids, query, userID)
	return ids, err
}

func (r *postgresRepository) GetDescription(ctx context.Context, userAID, userBID int64) (string, error) {
	a, b := canonicalPair(userAID, userBID)

	var description string
	query := `
        SELECT description FROM compatibility_descriptions
        WHERE user_a_id = $1 AND user_b_id = $2
    `

	err := r.db.GetContext(ctx, &description, query, a, b)
	if err == sql.ErrNoRows {
		return "", ErrDescriptionNotFound
	}

	return description, err
}

// InsertDescription writes through the cache. Two writers racing on the same
// pair both carry equivalent content, so the conflict is simply dropped.
func (r *postgresRepository) InsertDescription(ctx context.Context, userAID, userBID int64, description string) error {
	a, b := canonicalPair(userAID, userBID)

	query := `
        INSERT INTO compatibility_descriptions (user_a_id, user_b_id, description)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_a_id, user_b_id) DO NOTHING
    `

	_, err := r.db.ExecContext(ctx, query, a, b, description)
	return err
}

// ListWeeklyEligibleUserIDs finds users already in weekly-drop mode, for the
// Monday pre-generation job. The thresholds mirror ModeFor.
func (r *postgresRepository) ListWeeklyEligibleUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	query := `
        SELECT u.id
        FROM users u
        WHERE (
            SELECT COUNT(*) FROM relations rel
            WHERE (rel.sender_id = u.id OR rel.receiver_id = u.id) AND rel.status = 'accepted'
        ) > $1
        OR (
            SELECT COUNT(*) FROM suggestion_interactions si WHERE si.user_id = u.id
        ) >= $2
    `

	err := r.db.SelectContext(ctx, &ids, query, WeeklyConnectionThreshold, WeeklyInteractionThreshold)
	return ids, err
}
