package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/workflow"
)

// MemoryStore is an in-memory workflow.Store and workflow.AuditLog with the
// same semantics as the Postgres repositories: proposal updates are
// compare-and-swap on the version and each transition commits together with
// its audit entries or not at all. Used by tests and for running the service
// without a database.
type MemoryStore struct {
	mu             sync.RWMutex
	proposals      map[int64]*workflow.Proposal
	nextProposalID int64
	audit          []*workflow.AuditEntry
	nextAuditID    int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		proposals:      map[int64]*workflow.Proposal{},
		nextProposalID: 1,
		nextAuditID:    1,
	}
}

// Create assigns the next proposal id and stores the proposal together with
// its audit entry.
func (s *MemoryStore) Create(ctx context.Context, p *workflow.Proposal, entry *workflow.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = s.nextProposalID
	s.nextProposalID++
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	s.proposals[p.ID] = p.Clone()

	entry.ProposalID = p.ID
	s.appendLocked(entry)
	return nil
}

// Get returns a deep copy of the stored proposal.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*workflow.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, apperr.NotFound("proposal", id)
	}
	return p.Clone(), nil
}

// List returns deep copies of all proposals in ascending id order.
func (s *MemoryStore) List(ctx context.Context) ([]*workflow.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Proposal, 0, len(s.proposals))
	for id := int64(1); id < s.nextProposalID; id++ {
		if p, ok := s.proposals[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Update applies a transition if the caller's version matches the stored
// one, bumping the version and appending the audit entries atomically.
func (s *MemoryStore) Update(ctx context.Context, p *workflow.Proposal, entries ...*workflow.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.proposals[p.ID]
	if !ok {
		return apperr.NotFound("proposal", p.ID)
	}
	if stored.Version != p.Version {
		return apperr.Conflict(fmt.Sprintf(
			"proposal %d was modified concurrently", p.ID))
	}

	p.Version++
	p.UpdatedAt = time.Now().UTC()
	s.proposals[p.ID] = p.Clone()

	for _, entry := range entries {
		entry.ProposalID = p.ID
		s.appendLocked(entry)
	}
	return nil
}

// Query returns audit entries in ascending id order, optionally filtered to
// one proposal.
func (s *MemoryStore) Query(ctx context.Context, proposalID *int64) ([]*workflow.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*workflow.AuditEntry{}
	for _, entry := range s.audit {
		if proposalID != nil && entry.ProposalID != *proposalID {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) appendLocked(entry *workflow.AuditEntry) {
	entry.ID = s.nextAuditID
	s.nextAuditID++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	cp := *entry
	s.audit = append(s.audit, &cp)
}
