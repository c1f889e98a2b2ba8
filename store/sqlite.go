package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// SQLiteStore is a Store backed by a SQLite database. It is safe for
// concurrent use; the one-active-commitment invariant is guaranteed by a
// partial unique index, so concurrent creates resolve to exactly one winner.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite database at path. Use ":memory:"
// for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; serialize access through one connection
	// so concurrent tool calls queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle, applying migrations.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping runs a trivial query to verify the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// EnsureAccount returns the account for address, creating it if absent.
func (s *SQLiteStore) EnsureAccount(ctx context.Context, address string) (*Account, bool, error) {
	if acct, err := s.GetAccount(ctx, address); err == nil {
		return acct, false, nil
	} else if !isNotFound(err) {
		return nil, false, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (address, name, created_at) VALUES (?, '', ?)
		 ON CONFLICT(address) DO NOTHING`,
		address, now.Format(time.RFC3339))
	if err != nil {
		return nil, false, fmt.Errorf("ensure account: insert: %w", err)
	}
	affected, _ := res.RowsAffected()

	acct, err := s.GetAccount(ctx, address)
	if err != nil {
		return nil, false, err
	}
	return acct, affected > 0, nil
}

// GetAccount returns the account for address or *NotFoundError.
func (s *SQLiteStore) GetAccount(ctx context.Context, address string) (*Account, error) {
	var (
		acct    Account
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, address, name, created_at FROM accounts WHERE address = ?`, address).
		Scan(&acct.ID, &acct.Address, &acct.Name, &created)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "account", Key: address}
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &acct, nil
}

// UpdateAccountName records the counterpart's name.
func (s *SQLiteStore) UpdateAccountName(ctx context.Context, address, name string) (*Account, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET name = ? WHERE address = ?`, name, address)
	if err != nil {
		return nil, fmt.Errorf("update account name: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, &NotFoundError{Kind: "account", Key: address}
	}
	return s.GetAccount(ctx, address)
}

// CreateCommitment persists a new active commitment for c.AccountID.
func (s *SQLiteStore) CreateCommitment(ctx context.Context, c *Commitment) (*Commitment, error) {
	schedule := c.Schedule
	if schedule == nil {
		schedule = map[string]any{"daily": true}
	}
	scheduleJSON, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("create commitment: encode schedule: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO commitments
			(account_id, goal_description, task_description, start_date, end_date,
			 stake_amount, stake_type, schedule, verification_method, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.AccountID, c.GoalDescription, c.TaskDescription, c.StartDate, c.EndDate,
		c.StakeAmount, string(c.StakeType), string(scheduleJSON), c.VerificationMethod,
		CommitmentActive, now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Kind: "commitment", Key: fmt.Sprintf("account %d already has an active commitment", c.AccountID)}
		}
		return nil, fmt.Errorf("create commitment: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create commitment: last insert id: %w", err)
	}
	return s.GetCommitment(ctx, id)
}

// ActiveCommitment returns the account's active commitment or *NotFoundError.
func (s *SQLiteStore) ActiveCommitment(ctx context.Context, accountID int64) (*Commitment, error) {
	row := s.db.QueryRowContext(ctx,
		commitmentColumns+` WHERE account_id = ? AND status = ?`, accountID, CommitmentActive)
	c, err := scanCommitment(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "commitment", Key: fmt.Sprintf("active for account %d", accountID)}
	}
	if err != nil {
		return nil, fmt.Errorf("active commitment: %w", err)
	}
	return c, nil
}

// GetCommitment returns a commitment by id or *NotFoundError.
func (s *SQLiteStore) GetCommitment(ctx context.Context, id int64) (*Commitment, error) {
	row := s.db.QueryRowContext(ctx, commitmentColumns+` WHERE id = ?`, id)
	c, err := scanCommitment(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "commitment", Key: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

// CreateVerification appends a proof record for v.CommitmentID.
func (s *SQLiteStore) CreateVerification(ctx context.Context, v *Verification) (*Verification, error) {
	if _, err := s.GetCommitment(ctx, v.CommitmentID); err != nil {
		return nil, err
	}

	status := v.Status
	if status == "" {
		status = VerificationCompletedOnTime
	}
	verifiedAt := v.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO verifications (commitment_id, due_date, proof_reference, justification, status, verified_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.CommitmentID, v.DueDate, v.ProofReference, v.Justification, status,
		verifiedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("create verification: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create verification: last insert id: %w", err)
	}
	out := *v
	out.ID = id
	out.Status = status
	out.VerifiedAt = verifiedAt
	return &out, nil
}

const commitmentColumns = `SELECT id, account_id, goal_description, task_description,
	start_date, end_date, stake_amount, stake_type, schedule, verification_method,
	status, created_at FROM commitments`

func scanCommitment(row *sql.Row) (*Commitment, error) {
	var (
		c         Commitment
		stakeType string
		schedule  string
		created   string
	)
	err := row.Scan(&c.ID, &c.AccountID, &c.GoalDescription, &c.TaskDescription,
		&c.StartDate, &c.EndDate, &c.StakeAmount, &stakeType, &schedule,
		&c.VerificationMethod, &c.Status, &created)
	if err != nil {
		return nil, err
	}
	c.StakeType = StakeType(stakeType)
	if schedule != "" {
		_ = json.Unmarshal([]byte(schedule), &c.Schedule)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &c, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// isUniqueViolation detects SQLite unique constraint failures across driver
// error shapes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
