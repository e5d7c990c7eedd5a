package store

import (
	"context"
	"errors"
	"time"

	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements ledger.Store on pgx. Every settle runs in a
// single transaction with a compare-and-swap on the open status, so the
// record change, the balance movement and the escrow total commit together
// or not at all.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const requestColumns = `id, seq, requester_id, content, contact_info, deposit_nano, deadline, status, fulfillment, fulfilled_by, created_at, updated_at`

func scanRequest(row pgx.Row, r *models.Request) error {
	return row.Scan(&r.ID, &r.Seq, &r.RequesterID, &r.Content, &r.ContactInfo, &r.DepositNano,
		&r.Deadline, &r.Status, &r.Fulfillment, &r.FulfilledBy, &r.CreatedAt, &r.UpdatedAt)
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance_nano = balance_nano - $1, updated_at = now()
		WHERE user_id = $2 AND balance_nano >= $1
	`, req.DepositNano, req.RequesterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientFunds
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO requests (id, requester_id, content, contact_info, deposit_nano, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq, created_at, updated_at
	`, req.ID, req.RequesterID, req.Content, req.ContactInfo, req.DepositNano, req.Deadline, req.Status,
	).Scan(&req.Seq, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE ledger_totals SET escrowed_nano = escrowed_nano + $1 WHERE id = 1`, req.DepositNano); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var r models.Request
	err := scanRequest(s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id), &r)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) CountRequests(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM requests`).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM requests WHERE requester_id = $1 ORDER BY seq ASC
	`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var r models.Request
		if err := scanRequest(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListExpiredOpen(ctx context.Context, asOf time.Time, limit int) ([]models.Request, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE status = 'open' AND deadline < $1
		ORDER BY deadline ASC LIMIT $2
	`, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var r models.Request
		if err := scanRequest(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SettleFulfilled(ctx context.Context, id uuid.UUID, fulfiller uuid.UUID, payload string, payee uuid.UUID, deposit int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE requests SET status = 'fulfilled', fulfillment = $2, fulfilled_by = $3, updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, id, payload, fulfiller)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settleConflict(ctx, tx, id)
	}

	if err := creditTx(ctx, tx, payee, deposit); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_totals SET escrowed_nano = escrowed_nano - $1 WHERE id = 1`, deposit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) SettleReclaimed(ctx context.Context, id uuid.UUID, requester uuid.UUID, deposit int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE requests SET status = 'reclaimed', updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settleConflict(ctx, tx, id)
	}

	if err := creditTx(ctx, tx, requester, deposit); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE ledger_totals SET escrowed_nano = escrowed_nano - $1 WHERE id = 1`, deposit); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) TotalEscrowed(ctx context.Context) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `SELECT escrowed_nano FROM ledger_totals WHERE id = 1`).Scan(&total)
	return total, err
}

func (s *PostgresStore) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT balance_nano FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (s *PostgresStore) Credit(ctx context.Context, userID uuid.UUID, amountNano int64) error {
	if amountNano <= 0 {
		return ledger.ErrInvalidArgument
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (user_id, balance_nano) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			balance_nano = accounts.balance_nano + EXCLUDED.balance_nano,
			updated_at = now()
	`, userID, amountNano)
	return err
}

func creditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amountNano int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (user_id, balance_nano) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			balance_nano = accounts.balance_nano + EXCLUDED.balance_nano,
			updated_at = now()
	`, userID, amountNano)
	return err
}

// settleConflict maps a lost compare-and-swap to the taxonomy error matching
// the state the request actually reached.
func settleConflict(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM requests WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	switch status {
	case models.RequestStatusFulfilled:
		return ledger.ErrAlreadyFulfilled
	case models.RequestStatusReclaimed:
		return ledger.ErrAlreadyReclaimed
	default:
		return ledger.ErrInvalidState
	}
}
