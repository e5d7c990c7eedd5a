package store

import (
	"context"
	"sync"
	"time"

	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/models"
	"github.com/google/uuid"
)

// MemoryStore implements ledger.Store entirely in memory. One mutex makes
// every mutating call a serial critical section, matching the ledger's
// transactional contract. Used by tests and single-process deployments.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	order       []uuid.UUID
	requests    map[uuid.UUID]*models.Request
	byRequester map[uuid.UUID][]uuid.UUID
	balances    map[uuid.UUID]int64
	escrowed    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:    make(map[uuid.UUID]*models.Request),
		byRequester: make(map[uuid.UUID][]uuid.UUID),
		balances:    make(map[uuid.UUID]int64),
	}
}

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[req.RequesterID] < req.DepositNano {
		return ledger.ErrInsufficientFunds
	}
	s.balances[req.RequesterID] -= req.DepositNano

	s.seq++
	req.Seq = s.seq

	stored := *req
	s.requests[req.ID] = &stored
	s.order = append(s.order, req.ID)
	s.byRequester[req.RequesterID] = append(s.byRequester[req.RequesterID], req.ID)
	s.escrowed += req.DepositNano
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) CountRequests(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.order)), nil
}

func (s *MemoryStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byRequester[requesterID]
	out := make([]models.Request, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.requests[id])
	}
	return out, nil
}

func (s *MemoryStore) ListExpiredOpen(ctx context.Context, asOf time.Time, limit int) ([]models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var out []models.Request
	for _, id := range s.order {
		req := s.requests[id]
		if req.Status != models.RequestStatusOpen || !req.Deadline.Before(asOf) {
			continue
		}
		out = append(out, *req)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) SettleFulfilled(ctx context.Context, id uuid.UUID, fulfiller uuid.UUID, payload string, payee uuid.UUID, deposit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if req.Status != models.RequestStatusOpen {
		return conflictErr(req.Status)
	}

	req.Status = models.RequestStatusFulfilled
	req.Fulfillment = &payload
	req.FulfilledBy = &fulfiller
	req.UpdatedAt = time.Now()

	s.balances[payee] += deposit
	s.escrowed -= deposit
	return nil
}

func (s *MemoryStore) SettleReclaimed(ctx context.Context, id uuid.UUID, requester uuid.UUID, deposit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if req.Status != models.RequestStatusOpen {
		return conflictErr(req.Status)
	}

	req.Status = models.RequestStatusReclaimed
	req.UpdatedAt = time.Now()

	s.balances[requester] += deposit
	s.escrowed -= deposit
	return nil
}

func (s *MemoryStore) TotalEscrowed(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escrowed, nil
}

func (s *MemoryStore) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *MemoryStore) Credit(ctx context.Context, userID uuid.UUID, amountNano int64) error {
	if amountNano <= 0 {
		return ledger.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += amountNano
	return nil
}

func conflictErr(status string) error {
	switch status {
	case models.RequestStatusFulfilled:
		return ledger.ErrAlreadyFulfilled
	case models.RequestStatusReclaimed:
		return ledger.ErrAlreadyReclaimed
	default:
		return ledger.ErrInvalidState
	}
}
