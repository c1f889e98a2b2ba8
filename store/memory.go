package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a volatile Store implementation for tests and local
// development. It enforces the same invariants as the SQLite store.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        int64
	accounts      map[string]*Account // keyed by address
	commitments   map[int64]*Commitment
	verifications []*Verification
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		accounts:    make(map[string]*Account),
		commitments: make(map[int64]*Commitment),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) EnsureAccount(_ context.Context, address string) (*Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[address]; ok {
		out := *acct
		return &out, false, nil
	}
	acct := &Account{ID: s.allocID(), Address: address, CreatedAt: time.Now().UTC()}
	s.accounts[address] = acct
	out := *acct
	return &out, true, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, address string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[address]
	if !ok {
		return nil, &NotFoundError{Kind: "account", Key: address}
	}
	out := *acct
	return &out, nil
}

func (s *MemoryStore) UpdateAccountName(_ context.Context, address, name string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[address]
	if !ok {
		return nil, &NotFoundError{Kind: "account", Key: address}
	}
	acct.Name = name
	out := *acct
	return &out, nil
}

func (s *MemoryStore) CreateCommitment(_ context.Context, c *Commitment) (*Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.commitments {
		if existing.AccountID == c.AccountID && existing.Status == CommitmentActive {
			return nil, &ConflictError{Kind: "commitment", Key: fmt.Sprintf("account %d already has an active commitment", c.AccountID)}
		}
	}
	stored := *c
	stored.ID = s.allocID()
	stored.Status = CommitmentActive
	stored.CreatedAt = time.Now().UTC()
	if stored.Schedule == nil {
		stored.Schedule = map[string]any{"daily": true}
	}
	s.commitments[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) ActiveCommitment(_ context.Context, accountID int64) (*Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commitments {
		if c.AccountID == accountID && c.Status == CommitmentActive {
			out := *c
			return &out, nil
		}
	}
	return nil, &NotFoundError{Kind: "commitment", Key: fmt.Sprintf("active for account %d", accountID)}
}

func (s *MemoryStore) GetCommitment(_ context.Context, id int64) (*Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok {
		return nil, &NotFoundError{Kind: "commitment", Key: fmt.Sprintf("%d", id)}
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) CreateVerification(_ context.Context, v *Verification) (*Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commitments[v.CommitmentID]; !ok {
		return nil, &NotFoundError{Kind: "commitment", Key: fmt.Sprintf("%d", v.CommitmentID)}
	}
	stored := *v
	stored.ID = s.allocID()
	if stored.Status == "" {
		stored.Status = VerificationCompletedOnTime
	}
	if stored.VerifiedAt.IsZero() {
		stored.VerifiedAt = time.Now().UTC()
	}
	s.verifications = append(s.verifications, &stored)
	out := stored
	return &out, nil
}

// Verifications returns a copy of all recorded verifications, in insertion
// order. Test helper.
func (s *MemoryStore) Verifications() []Verification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Verification, 0, len(s.verifications))
	for _, v := range s.verifications {
		out = append(out, *v)
	}
	return out
}

func (s *MemoryStore) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}
