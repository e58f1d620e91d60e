package matchmaking

import (
	"time"
)

// Recommendation modes. A user starts in suggestion mode and graduates to
// weekly-drop mode once enough connections or interactions accumulate; counts
// never decrease under normal flows, so the upgrade is one-way.
const (
	ModeSuggestion = "suggestion"
	ModeWeeklyDrop = "weekly_drop"
)

// Weekly drop statuses. SHOWN is the only non-terminal state.
const (
	DropStatusShown     = "shown"
	DropStatusNoMatch   = "no_match"
	DropStatusConnected = "connected"
	DropStatusSkipped   = "skipped"
	DropStatusHidden    = "hidden"
)

// Interaction types recorded in the suggestion ledger.
const (
	InteractionConnected = "connected"
	InteractionSkipped   = "skipped"
)

// Response actions accepted by RecordResponse.
const (
	ActionConnected = "connected"
	ActionSkipped   = "skipped"
	ActionHidden    = "hidden"
)

// Tuning constants for candidate selection.
const (
	// SimilarityThreshold is the minimum cosine similarity for a vector hit.
	SimilarityThreshold = 0.30
	// VectorTopK is how many rows each vector index returns before filtering.
	VectorTopK = 20
	// TagTopK is how many rows the lexical tag fallback returns.
	TagTopK = 10
	// MaxSuggestionSlots is the ceiling of simultaneous open suggestions.
	MaxSuggestionSlots = 3
	// WeeklyConnectionThreshold: more connections than this means weekly mode.
	WeeklyConnectionThreshold = 4
	// WeeklyInteractionThreshold: this many ledger rows means weekly mode.
	WeeklyInteractionThreshold = 3
)

// SuggestionInteraction is one ledger row: the latest outcome for a
// (user, suggested user) pair. Re-recording overwrites, never duplicates.
type SuggestionInteraction struct {
	UserID          int64     `json:"user_id" db:"user_id"`
	SuggestedUserID int64     `json:"suggested_user_id" db:"suggested_user_id"`
	InteractionType string    `json:"interaction_type" db:"interaction_type"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// WeeklyDrop is the single per-(user, week) recommendation row. Exactly one
// row may exist per key; concurrent creators race on the unique constraint
// and the loser adopts the winner's row.
type WeeklyDrop struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	WeekStartDate   time.Time  `json:"week_start_date" db:"week_start_date"`
	CandidateUserID *int64     `json:"candidate_user_id,omitempty" db:"candidate_user_id"`
	SimilarityScore *float64   `json:"similarity_score,omitempty" db:"similarity_score"`
	Status          string     `json:"status" db:"status"`
	ShownAt         *time.Time `json:"shown_at,omitempty" db:"shown_at"`
	InteractedAt    *time.Time `json:"interacted_at,omitempty" db:"interacted_at"`
}

// Terminal reports whether the drop can no longer change.
func (d *WeeklyDrop) Terminal() bool {
	return d.Status != DropStatusShown
}

// CompatibilityDescription is a cached pairwise explanation, keyed by the
// canonically ordered pair (user_a_id < user_b_id).
type CompatibilityDescription struct {
	UserAID     int64     `db:"user_a_id"`
	UserBID     int64     `db:"user_b_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Candidate is one recommended user as returned to the caller.
type Candidate struct {
	ID         int64    `json:"id"`
	Reason     string   `json:"reason"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Recommendations is the response of GetRecommendations. Candidates is never
// nil; an empty slice means nothing qualified.
type Recommendations struct {
	Mode       string      `json:"mode"`
	Candidates []Candidate `json:"candidates"`
}

// canonicalPair orders two user ids so pair-keyed storage is symmetric.
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
