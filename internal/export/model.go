package export

import "time"

// Status is the lifecycle state of an export job. The progression is linear:
// PENDING -> PROCESSING -> COMPLETED or FAILED.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one asynchronous export. Progress is a 0-100 percentage that
// never decreases while the job is PROCESSING. Download holds the base64
// encoded CSV artifact once the job is COMPLETED; Error is set once FAILED.
// Jobs expire a fixed retention window after CreatedAt regardless of outcome.
type Job struct {
	ID               string     `json:"id"`
	WalletID         string     `json:"walletId"`
	Status           Status     `json:"status"`
	Progress         int        `json:"progress"`
	TotalRecords     int64      `json:"totalRecords"`
	ProcessedRecords int64      `json:"processedRecords"`
	Download         string     `json:"download,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}
