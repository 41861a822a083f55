package domain

import "time"

// DeletionRequestedEvent is emitted after a deletion request is persisted.
type DeletionRequestedEvent struct {
	EventID          string         `json:"event_id"`
	UserID           string         `json:"user_id"`
	RequestID        string         `json:"request_id"`
	RequestedAt      time.Time      `json:"requested_at"`
	ScheduledPurgeAt time.Time      `json:"scheduled_purge_at"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// DeletionRecoveredEvent is emitted when a pending deletion is cancelled via
// a recovery token.
type DeletionRecoveredEvent struct {
	EventID     string         `json:"event_id"`
	UserID      string         `json:"user_id"`
	RequestID   string         `json:"request_id"`
	RecoveredAt time.Time      `json:"recovered_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// DeletionPurgedEvent is emitted after a user's data has been irreversibly
// removed.
type DeletionPurgedEvent struct {
	EventID         string         `json:"event_id"`
	UserID          string         `json:"user_id"`
	RequestID       string         `json:"request_id"`
	PurgedAt        time.Time      `json:"purged_at"`
	IdentityRemoved bool           `json:"identity_removed"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// EmailChangedEvent is emitted once a verified email address becomes
// authoritative on the profile.
type EmailChangedEvent struct {
	EventID   string         `json:"event_id"`
	UserID    string         `json:"user_id"`
	NewEmail  string         `json:"new_email"`
	ChangedAt time.Time      `json:"changed_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
