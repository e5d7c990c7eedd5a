package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/askledger/backend/internal/events"
	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/models"
	"github.com/askledger/backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func (p *capturePublisher) lastType() string {
	if len(p.published) == 0 {
		return ""
	}
	return p.published[len(p.published)-1].Type
}

type fixture struct {
	led       *ledger.Ledger
	mem       *store.MemoryStore
	pub       *capturePublisher
	now       time.Time
	requester uuid.UUID
	responder uuid.UUID
}

func newFixture(t *testing.T, disposition string) *fixture {
	t.Helper()

	f := &fixture{
		mem:       store.NewMemoryStore(),
		pub:       &capturePublisher{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		requester: uuid.New(),
		responder: uuid.New(),
	}
	clock := func() time.Time { return f.now }
	f.led = ledger.NewLedger(
		f.mem,
		clock,
		ledger.AllowList{f.responder},
		f.pub,
		store.NoopAuditor{},
		disposition,
		zap.NewNop(),
	)

	if err := f.mem.Credit(context.Background(), f.requester, 1_000_000_000); err != nil {
		t.Fatalf("fund requester: %v", err)
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	b, err := f.mem.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func (f *fixture) escrowed(t *testing.T) int64 {
	t.Helper()
	total, err := f.mem.TotalEscrowed(context.Background())
	if err != nil {
		t.Fatalf("total escrowed: %v", err)
	}
	return total
}

func (f *fixture) create(t *testing.T, deposit int64, ttl time.Duration) *models.Request {
	t.Helper()
	req, err := f.led.Create(context.Background(), f.requester, "need an answer", "@contact", f.now.Add(ttl), deposit)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func TestCreateEscrowsDeposit(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 300_000_000, time.Hour)

	if req.Status != models.RequestStatusOpen {
		t.Errorf("status = %q, want %q", req.Status, models.RequestStatusOpen)
	}
	if req.Seq != 1 {
		t.Errorf("seq = %d, want 1", req.Seq)
	}
	if got := f.balance(t, f.requester); got != 700_000_000 {
		t.Errorf("requester balance = %d, want 700000000", got)
	}
	if got := f.escrowed(t); got != 300_000_000 {
		t.Errorf("escrowed = %d, want 300000000", got)
	}

	stored, err := f.led.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RequesterID != f.requester {
		t.Errorf("requester = %s, want %s", stored.RequesterID, f.requester)
	}
	if f.pub.lastType() != events.EventRequestCreated {
		t.Errorf("event = %q, want %q", f.pub.lastType(), events.EventRequestCreated)
	}
}

func TestCreateAcceptsPastDeadline(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)

	req := f.create(t, 100, -time.Hour)

	if req.Status != models.RequestStatusOpen {
		t.Errorf("status = %q, want open", req.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()
	deadline := f.now.Add(time.Hour)

	tests := []struct {
		name      string
		requester uuid.UUID
		deposit   int64
		wantErr   error
	}{
		{"zero deposit", f.requester, 0, ledger.ErrInvalidArgument},
		{"negative deposit", f.requester, -5, ledger.ErrInvalidArgument},
		{"nil requester", uuid.Nil, 100, ledger.ErrInvalidArgument},
		{"insufficient funds", f.requester, 2_000_000_000, ledger.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.led.Create(ctx, tt.requester, "q", "", deadline, tt.deposit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := f.balance(t, f.requester); got != 1_000_000_000 {
		t.Errorf("requester balance = %d, want untouched 1000000000", got)
	}
	if got := f.escrowed(t); got != 0 {
		t.Errorf("escrowed = %d, want 0", got)
	}
}

func TestFulfillPaysResponder(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 250_000_000, time.Hour)

	if err := f.led.Fulfill(ctx, req.ID, f.responder, "here is your answer"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	stored, _ := f.led.Get(ctx, req.ID)
	if stored.Status != models.RequestStatusFulfilled {
		t.Errorf("status = %q, want fulfilled", stored.Status)
	}
	if stored.Fulfillment == nil || *stored.Fulfillment != "here is your answer" {
		t.Errorf("fulfillment = %v, want payload", stored.Fulfillment)
	}
	if stored.FulfilledBy == nil || *stored.FulfilledBy != f.responder {
		t.Errorf("fulfilled_by = %v, want responder", stored.FulfilledBy)
	}
	if got := f.balance(t, f.responder); got != 250_000_000 {
		t.Errorf("responder balance = %d, want 250000000", got)
	}
	if got := f.escrowed(t); got != 0 {
		t.Errorf("escrowed = %d, want 0", got)
	}
	if f.pub.lastType() != events.EventRequestFulfilled {
		t.Errorf("event = %q, want %q", f.pub.lastType(), events.EventRequestFulfilled)
	}
}

func TestFulfillRequesterDisposition(t *testing.T) {
	f := newFixture(t, ledger.DispositionRequester)
	ctx := context.Background()

	req := f.create(t, 250_000_000, time.Hour)

	if err := f.led.Fulfill(ctx, req.ID, f.responder, "answer"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	if got := f.balance(t, f.requester); got != 1_000_000_000 {
		t.Errorf("requester balance = %d, want refund to 1000000000", got)
	}
	if got := f.balance(t, f.responder); got != 0 {
		t.Errorf("responder balance = %d, want 0", got)
	}
}

func TestFulfillAfterDeadlineStillAllowed(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	f.advance(2 * time.Hour)

	if err := f.led.Fulfill(ctx, req.ID, f.responder, "late but valid"); err != nil {
		t.Fatalf("fulfill past deadline: %v", err)
	}
}

func TestFulfillErrors(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)

	if err := f.led.Fulfill(ctx, uuid.New(), f.responder, "x"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
	if err := f.led.Fulfill(ctx, req.ID, f.requester, "x"); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("non-responder: err = %v, want ErrUnauthorized", err)
	}

	if err := f.led.Fulfill(ctx, req.ID, f.responder, "x"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if err := f.led.Fulfill(ctx, req.ID, f.responder, "again"); !errors.Is(err, ledger.ErrInvalidState) {
		t.Errorf("double fulfill: err = %v, want ErrInvalidState", err)
	}

	if got := f.balance(t, f.responder); got != 100 {
		t.Errorf("responder balance = %d, want single payout of 100", got)
	}
}

func TestReclaimReturnsDeposit(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 400_000_000, time.Hour)
	f.advance(time.Hour + time.Second)

	if err := f.led.Reclaim(ctx, req.ID, f.requester); err != nil {
		t.Fatalf("reclaim: %v", err)
	}

	stored, _ := f.led.Get(ctx, req.ID)
	if stored.Status != models.RequestStatusReclaimed {
		t.Errorf("status = %q, want reclaimed", stored.Status)
	}
	if got := f.balance(t, f.requester); got != 1_000_000_000 {
		t.Errorf("requester balance = %d, want full refund to 1000000000", got)
	}
	if got := f.escrowed(t); got != 0 {
		t.Errorf("escrowed = %d, want 0", got)
	}
	if f.pub.lastType() != events.EventRequestReclaimed {
		t.Errorf("event = %q, want %q", f.pub.lastType(), events.EventRequestReclaimed)
	}
}

func TestReclaimDeadlineIsStrict(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)

	// Exactly at the deadline the request is not yet expired.
	f.advance(time.Hour)
	if err := f.led.Reclaim(ctx, req.ID, f.requester); !errors.Is(err, ledger.ErrNotExpired) {
		t.Fatalf("at deadline: err = %v, want ErrNotExpired", err)
	}

	f.advance(time.Second)
	if err := f.led.Reclaim(ctx, req.ID, f.requester); err != nil {
		t.Fatalf("one second past deadline: %v", err)
	}
}

func TestReclaimBeforeDeadline(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)

	if err := f.led.Reclaim(ctx, req.ID, f.requester); !errors.Is(err, ledger.ErrNotExpired) {
		t.Errorf("err = %v, want ErrNotExpired", err)
	}
	if got := f.balance(t, f.requester); got != 1_000_000_000-100 {
		t.Errorf("requester balance = %d, deposit must stay escrowed", got)
	}
}

func TestReclaimOwnershipChecked(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	f.advance(2 * time.Hour)

	stranger := uuid.New()
	if err := f.led.Reclaim(ctx, req.ID, stranger); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("stranger reclaim: err = %v, want ErrUnauthorized", err)
	}
	if err := f.led.Reclaim(ctx, req.ID, f.responder); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("responder reclaim: err = %v, want ErrUnauthorized", err)
	}
}

func TestReclaimFulfilledRefused(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	if err := f.led.Fulfill(ctx, req.ID, f.responder, "answer"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// Even long past the deadline a fulfilled request stays settled.
	f.advance(48 * time.Hour)
	if err := f.led.Reclaim(ctx, req.ID, f.requester); !errors.Is(err, ledger.ErrAlreadyFulfilled) {
		t.Errorf("err = %v, want ErrAlreadyFulfilled", err)
	}
}

func TestReclaimTwiceRefused(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	f.advance(2 * time.Hour)

	if err := f.led.Reclaim(ctx, req.ID, f.requester); err != nil {
		t.Fatalf("first reclaim: %v", err)
	}
	if err := f.led.Reclaim(ctx, req.ID, f.requester); !errors.Is(err, ledger.ErrAlreadyReclaimed) {
		t.Errorf("second reclaim: err = %v, want ErrAlreadyReclaimed", err)
	}
	if got := f.balance(t, f.requester); got != 1_000_000_000 {
		t.Errorf("requester balance = %d, deposit must be returned exactly once", got)
	}
}

func TestReclaimUnknownRequest(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)

	if err := f.led.Reclaim(context.Background(), uuid.New(), f.requester); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// Ownership is checked before state and state before expiry, so callers get a
// stable error for a given situation regardless of what else is true.
func TestReclaimCheckOrder(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	if err := f.led.Fulfill(ctx, req.ID, f.responder, "answer"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// Fulfilled + not expired + wrong caller: ownership wins.
	if err := f.led.Reclaim(ctx, req.ID, uuid.New()); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	// Fulfilled + not expired + right caller: state wins over expiry.
	if err := f.led.Reclaim(ctx, req.ID, f.requester); !errors.Is(err, ledger.ErrAlreadyFulfilled) {
		t.Errorf("err = %v, want ErrAlreadyFulfilled", err)
	}
}

func TestTotalEscrowedTracksOpenDeposits(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	a := f.create(t, 100, time.Hour)
	b := f.create(t, 200, time.Hour)
	f.create(t, 300, time.Hour)

	if got := f.escrowed(t); got != 600 {
		t.Fatalf("escrowed = %d, want 600", got)
	}

	if err := f.led.Fulfill(ctx, a.ID, f.responder, "x"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	f.advance(2 * time.Hour)
	if err := f.led.Reclaim(ctx, b.ID, f.requester); err != nil {
		t.Fatalf("reclaim: %v", err)
	}

	if got := f.escrowed(t); got != 300 {
		t.Errorf("escrowed = %d, want 300 (only the open request)", got)
	}

	total, err := f.led.TotalEscrowed(ctx)
	if err != nil || total != 300 {
		t.Errorf("TotalEscrowed = %d, %v; want 300, nil", total, err)
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t, ledger.DispositionResponder)
	ctx := context.Background()

	first := f.create(t, 100, time.Hour)
	second := f.create(t, 200, time.Hour)

	n, err := f.led.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2, nil", n, err)
	}

	mine, err := f.led.ListByRequester(ctx, f.requester)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != first.ID || mine[1].ID != second.ID {
		t.Errorf("ListByRequester returned wrong set or order: %v", mine)
	}

	other, err := f.led.ListByRequester(ctx, uuid.New())
	if err != nil || len(other) != 0 {
		t.Errorf("ListByRequester(unknown) = %v, %v; want empty", other, err)
	}

	if _, err := f.led.Get(ctx, uuid.New()); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Get(unknown): err = %v, want ErrNotFound", err)
	}
}

func TestDefaultDispositionIsResponder(t *testing.T) {
	f := newFixture(t, "paymaster")
	ctx := context.Background()

	req := f.create(t, 100, time.Hour)
	if err := f.led.Fulfill(ctx, req.ID, f.responder, "x"); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if got := f.balance(t, f.responder); got != 100 {
		t.Errorf("responder balance = %d, unknown disposition must default to responder", got)
	}
}
