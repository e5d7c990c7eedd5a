package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/askledger/backend/internal/events"
	"github.com/askledger/backend/internal/metrics"
	"github.com/askledger/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock supplies "now" for deadline checks. Each mutating operation reads it
// exactly once, so there is no gap between the check and the commit.
type Clock func() time.Time

// Authorizer decides who may fulfill requests. The policy is a deployment
// concern; the ledger only requires some injected check.
type Authorizer interface {
	CanFulfill(ctx context.Context, userID uuid.UUID) bool
}

// Auditor records lifecycle actions for later inspection.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// Deposit disposition on fulfillment. The visible contract only locks a
// fulfilled request out of reclamation; where the deposit goes is an explicit
// deployment policy, defaulting to paying the responder.
const (
	DispositionResponder = "responder"
	DispositionRequester = "requester"
)

// Ledger owns the request records and the escrowed funds. It is the sole
// mutator of its own escrow: nothing moves money except Create, Fulfill and
// Reclaim, and each of those is atomic in the store.
type Ledger struct {
	store       Store
	clock       Clock
	auth        Authorizer
	publisher   events.Publisher
	audit       Auditor
	disposition string
	log         *zap.Logger
}

func NewLedger(store Store, clock Clock, auth Authorizer, publisher events.Publisher, audit Auditor, disposition string, log *zap.Logger) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	if disposition != DispositionRequester {
		disposition = DispositionResponder
	}
	return &Ledger{
		store:       store,
		clock:       clock,
		auth:        auth,
		publisher:   publisher,
		audit:       audit,
		disposition: disposition,
		log:         log,
	}
}

// Create posts a new request and moves the deposit from the requester's
// account into escrow. A past deadline is accepted — expiry is only ever
// evaluated when reclamation is attempted.
func (l *Ledger) Create(ctx context.Context, requesterID uuid.UUID, content, contactInfo string, deadline time.Time, depositNano int64) (*models.Request, error) {
	if requesterID == uuid.Nil {
		return nil, l.reject("create", fmt.Errorf("%w: requester is required", ErrInvalidArgument))
	}
	if depositNano <= 0 {
		return nil, l.reject("create", fmt.Errorf("%w: deposit must be greater than zero", ErrInvalidArgument))
	}

	now := l.clock()
	req := &models.Request{
		ID:          uuid.New(),
		RequesterID: requesterID,
		Content:     content,
		ContactInfo: contactInfo,
		DepositNano: depositNano,
		Deadline:    deadline,
		Status:      models.RequestStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.store.CreateRequest(ctx, req); err != nil {
		return nil, l.reject("create", err)
	}

	metrics.RequestsCreated.Inc()
	l.refreshEscrowGauge(ctx)

	_ = l.audit.Log(ctx, models.AuditLog{
		ActorUserID: &requesterID,
		ActorType:   "user",
		Action:      "request_created",
		EntityType:  "request",
		EntityID:    &req.ID,
		Meta:        map[string]any{"deposit_nano": depositNano, "deadline_unix": deadline.Unix()},
	})

	_ = l.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventRequestCreated,
		Payload: map[string]any{
			"id":            req.ID.String(),
			"requester_id":  requesterID.String(),
			"deadline_unix": deadline.Unix(),
		},
	})

	l.log.Info("request created",
		zap.String("request_id", req.ID.String()),
		zap.Int64("deposit_nano", depositNano),
	)
	return req, nil
}

// Fulfill closes an open request with a response payload. The deposit leaves
// escrow per the configured disposition policy and the request becomes
// permanently unreclaimable.
func (l *Ledger) Fulfill(ctx context.Context, id uuid.UUID, fulfillerID uuid.UUID, payload string) error {
	req, err := l.store.GetRequest(ctx, id)
	if err != nil {
		return l.reject("fulfill", err)
	}
	if !l.auth.CanFulfill(ctx, fulfillerID) {
		return l.reject("fulfill", fmt.Errorf("%w: fulfiller role required", ErrUnauthorized))
	}
	if req.Status != models.RequestStatusOpen {
		return l.reject("fulfill", fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status))
	}

	payee := req.RequesterID
	if l.disposition == DispositionResponder {
		payee = fulfillerID
	}

	if err := l.store.SettleFulfilled(ctx, id, fulfillerID, payload, payee, req.DepositNano); err != nil {
		// Lost a settle race: the request is no longer open.
		if errors.Is(err, ErrAlreadyFulfilled) || errors.Is(err, ErrAlreadyReclaimed) {
			err = fmt.Errorf("%w: request was settled concurrently", ErrInvalidState)
		}
		return l.reject("fulfill", err)
	}

	metrics.RequestsSettled.WithLabelValues("fulfilled").Inc()
	l.refreshEscrowGauge(ctx)

	_ = l.audit.Log(ctx, models.AuditLog{
		ActorUserID: &fulfillerID,
		ActorType:   "user",
		Action:      "request_fulfilled",
		EntityType:  "request",
		EntityID:    &id,
		Meta:        map[string]any{"payee": payee.String(), "deposit_nano": req.DepositNano},
	})

	_ = l.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventRequestFulfilled,
		Payload: map[string]any{
			"id":           id.String(),
			"fulfiller_id": fulfillerID.String(),
			"payee_id":     payee.String(),
		},
	})

	l.log.Info("request fulfilled",
		zap.String("request_id", id.String()),
		zap.String("fulfiller_id", fulfillerID.String()),
	)
	return nil
}

// Reclaim returns the deposit of an expired, unfulfilled request to its
// requester. Check order is fixed and callers may depend on it: existence,
// then ownership, then state, then deadline. The deadline comparison is
// strict — reclamation at exactly the deadline instant is refused.
func (l *Ledger) Reclaim(ctx context.Context, id uuid.UUID, callerID uuid.UUID) error {
	req, err := l.store.GetRequest(ctx, id)
	if err != nil {
		return l.reject("reclaim", err)
	}
	if callerID != req.RequesterID {
		return l.reject("reclaim", fmt.Errorf("%w: only the requester may reclaim", ErrUnauthorized))
	}
	switch req.Status {
	case models.RequestStatusFulfilled:
		return l.reject("reclaim", ErrAlreadyFulfilled)
	case models.RequestStatusReclaimed:
		return l.reject("reclaim", ErrAlreadyReclaimed)
	}
	if now := l.clock(); !now.After(req.Deadline) {
		return l.reject("reclaim", fmt.Errorf("%w: deadline is %s", ErrNotExpired, req.Deadline.UTC().Format(time.RFC3339)))
	}

	if err := l.store.SettleReclaimed(ctx, id, req.RequesterID, req.DepositNano); err != nil {
		return l.reject("reclaim", err)
	}

	metrics.RequestsSettled.WithLabelValues("reclaimed").Inc()
	l.refreshEscrowGauge(ctx)

	_ = l.audit.Log(ctx, models.AuditLog{
		ActorUserID: &callerID,
		ActorType:   "user",
		Action:      "request_reclaimed",
		EntityType:  "request",
		EntityID:    &id,
		Meta:        map[string]any{"deposit_nano": req.DepositNano},
	})

	_ = l.publisher.Publish(ctx, events.StreamRequests, events.Event{
		Type: events.EventRequestReclaimed,
		Payload: map[string]any{
			"id":           id.String(),
			"requester_id": req.RequesterID.String(),
			"deposit_nano": req.DepositNano,
		},
	})

	l.log.Info("request reclaimed",
		zap.String("request_id", id.String()),
		zap.Int64("deposit_nano", req.DepositNano),
	)
	return nil
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return l.store.GetRequest(ctx, id)
}

func (l *Ledger) Count(ctx context.Context) (int64, error) {
	return l.store.CountRequests(ctx)
}

func (l *Ledger) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error) {
	return l.store.ListByRequester(ctx, requesterID)
}

func (l *Ledger) TotalEscrowed(ctx context.Context) (int64, error) {
	return l.store.TotalEscrowed(ctx)
}

func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return l.store.Balance(ctx, userID)
}

func (l *Ledger) refreshEscrowGauge(ctx context.Context) {
	total, err := l.store.TotalEscrowed(ctx)
	if err != nil {
		return
	}
	metrics.EscrowedNano.Set(float64(total))
}

func (l *Ledger) reject(op string, err error) error {
	metrics.OperationErrors.WithLabelValues(op, errorKind(err)).Inc()
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotExpired):
		return "not_expired"
	case errors.Is(err, ErrAlreadyFulfilled):
		return "already_fulfilled"
	case errors.Is(err, ErrAlreadyReclaimed):
		return "already_reclaimed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal"
	}
}
