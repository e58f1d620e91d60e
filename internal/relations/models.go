package relations

import "time"

// Relation statuses. Rows are never deleted; a decline only flips the status,
// so the full request history stays queryable.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Relation is a connection request between two users. sender_id/receiver_id
// keep their direction; queries that do not care about direction look at both
// columns.
type Relation struct {
	ID          int64      `json:"id" db:"id"`
	SenderID    int64      `json:"sender_id" db:"sender_id"`
	ReceiverID  int64      `json:"receiver_id" db:"receiver_id"`
	Status      string     `json:"status" db:"status"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Edge is the direction-free view of a relation used for exclusion building:
// just the other user and the current status.
type Edge struct {
	OtherID int64  `db:"other_id"`
	Status  string `db:"status"`
}

// Contact is what the notifier needs about a user.
type Contact struct {
	DisplayName string  `db:"display_name"`
	Email       *string `db:"email"`
}
