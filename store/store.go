// Package store defines the persistent records the coach operates on
// (accounts, commitments, verifications) and their storage contract. The
// one-active-commitment-per-account invariant is enforced at this boundary so
// concurrent creation attempts cannot both succeed.
package store

import (
	"context"
	"fmt"
	"time"
)

// StakeType enumerates how a financial stake is charged.
type StakeType string

const (
	// StakePerMissedPeriod charges the stake for every missed schedule period.
	StakePerMissedPeriod StakeType = "per_missed_period"
	// StakeOneTimeOnFailure charges the stake once if the commitment fails.
	StakeOneTimeOnFailure StakeType = "one_time_on_failure"
)

// Valid reports whether the stake type is one of the enumerated values.
func (s StakeType) Valid() bool {
	return s == StakePerMissedPeriod || s == StakeOneTimeOnFailure
}

// Commitment status values.
const (
	CommitmentActive = "active"
	CommitmentClosed = "closed"
)

// VerificationCompletedOnTime is the default status for recorded proofs.
const VerificationCompletedOnTime = "completed_on_time"

// DateLayout is the ISO calendar date form used for all commitment dates.
const DateLayout = "2006-01-02"

// Account is the persisted identity of one external counterpart. Name stays
// empty until onboarding completes.
type Account struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"` // Stable external address, e.g. whatsapp:+49151...
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Commitment is a goal under accountability, owned by exactly one account.
// At most one commitment per account is active at any time.
type Commitment struct {
	ID                 int64          `json:"id"`
	AccountID          int64          `json:"account_id"`
	GoalDescription    string         `json:"goal_description"`
	TaskDescription    string         `json:"task_description,omitempty"`
	StartDate          string         `json:"start_date"` // ISO calendar date
	EndDate            string         `json:"end_date"`   // ISO calendar date
	StakeAmount        float64        `json:"stake_amount"`
	StakeType          StakeType      `json:"stake_type"`
	Schedule           map[string]any `json:"schedule,omitempty"` // e.g. {"daily": true}
	VerificationMethod string         `json:"verification_method,omitempty"`
	Status             string         `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Verification is one recorded proof submission against a commitment.
// Append-only.
type Verification struct {
	ID             int64     `json:"id"`
	CommitmentID   int64     `json:"commitment_id"`
	DueDate        string    `json:"due_date"` // ISO calendar date
	ProofReference string    `json:"proof_reference,omitempty"`
	Justification  string    `json:"justification,omitempty"`
	Status         string    `json:"status"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// NotFoundError signals that a referenced record does not exist.
type NotFoundError struct {
	Kind string // "account", "commitment"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError signals a uniqueness violation, e.g. a second active
// commitment for the same account.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Kind, e.Key)
}

// Store is the record-level persistence contract consumed by the tools.
// Implementations must be safe for concurrent use and must surface the
// one-active-commitment invariant as *ConflictError, never as silent
// overwrite.
type Store interface {
	// EnsureAccount returns the account for address, creating it if absent.
	// The second result reports whether a new record was created.
	EnsureAccount(ctx context.Context, address string) (*Account, bool, error)

	// GetAccount returns the account for address or *NotFoundError.
	GetAccount(ctx context.Context, address string) (*Account, error)

	// UpdateAccountName records the counterpart's name. Idempotent.
	// Returns *NotFoundError if no account exists for address.
	UpdateAccountName(ctx context.Context, address, name string) (*Account, error)

	// CreateCommitment persists a new active commitment. Returns
	// *ConflictError if the account already has an active commitment.
	CreateCommitment(ctx context.Context, c *Commitment) (*Commitment, error)

	// ActiveCommitment returns the account's active commitment or
	// *NotFoundError.
	ActiveCommitment(ctx context.Context, accountID int64) (*Commitment, error)

	// GetCommitment returns a commitment by id or *NotFoundError.
	GetCommitment(ctx context.Context, id int64) (*Commitment, error)

	// CreateVerification appends a proof record. Returns *NotFoundError if
	// the referenced commitment does not exist.
	CreateVerification(ctx context.Context, v *Verification) (*Verification, error)

	// Ping reports whether the store can currently serve queries.
	Ping(ctx context.Context) error

	Close() error
}
