package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/bounty-warden/internal/core"
)

const prColumns = `id, owner, repo, pr_number, title, author, status, review_ref, review, notes,
	credited_amount, payment_account_id, credit_claimed_at, created_at, updated_at`

// prRow is the database representation of a core.PRRecord.
type prRow struct {
	ID               string        `db:"id"`
	Owner            string        `db:"owner"`
	Repo             string        `db:"repo"`
	Number           int           `db:"pr_number"`
	Title            string        `db:"title"`
	Author           string        `db:"author"`
	Status           string        `db:"status"`
	ReviewRef        string        `db:"review_ref"`
	Review           []byte        `db:"review"`
	Notes            string        `db:"notes"`
	CreditedAmount   sql.NullInt64 `db:"credited_amount"`
	PaymentAccountID string        `db:"payment_account_id"`
	CreditClaimedAt  sql.NullTime  `db:"credit_claimed_at"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

func (r *prRow) toRecord() (*core.PRRecord, error) {
	rec := &core.PRRecord{
		ID:               r.ID,
		Owner:            r.Owner,
		Repo:             r.Repo,
		Number:           r.Number,
		Title:            r.Title,
		Author:           r.Author,
		Status:           core.Status(r.Status),
		ReviewRef:        r.ReviewRef,
		Notes:            r.Notes,
		PaymentAccountID: r.PaymentAccountID,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.CreditedAmount.Valid {
		rec.CreditedAmount = core.Ptr(r.CreditedAmount.Int64)
	}
	if r.CreditClaimedAt.Valid {
		rec.CreditClaimedAt = core.Ptr(r.CreditClaimedAt.Time.UTC())
	}
	if len(r.Review) > 0 {
		var review core.StructuredReview
		if err := json.Unmarshal(r.Review, &review); err != nil {
			return nil, fmt.Errorf("failed to decode stored review for %s: %w", r.ID, err)
		}
		rec.Review = &review
	}
	return rec, nil
}

// reviewJSON encodes r for the JSONB column. lib/pq sends []byte as bytea,
// so the document travels as text.
func reviewJSON(r *core.StructuredReview) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullAmount(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a lifecycle store backed by the pull_requests table.
func NewPostgresStore(db *sqlx.DB) core.Store {
	return &postgresStore{db: db}
}

// Create upserts the record. On conflict the previous row is replaced and
// updated_at is pushed past its old value so ordering stays monotonic.
// A credited row is never replaced; the stored row is returned instead.
func (s *postgresStore) Create(ctx context.Context, rec *core.PRRecord) (*core.PRRecord, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("%w: record id is required", core.ErrValidation)
	}
	review, err := reviewJSON(rec.Review)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review: %w", err)
	}

	query := `
		INSERT INTO pull_requests (id, owner, repo, pr_number, title, author, status, review_ref, review, notes,
			credited_amount, payment_account_id, credit_claimed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, NULL, $13, $13)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			repo = EXCLUDED.repo,
			pr_number = EXCLUDED.pr_number,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			status = EXCLUDED.status,
			review_ref = EXCLUDED.review_ref,
			review = EXCLUDED.review,
			notes = EXCLUDED.notes,
			credited_amount = EXCLUDED.credited_amount,
			payment_account_id = EXCLUDED.payment_account_id,
			credit_claimed_at = NULL,
			created_at = EXCLUDED.created_at,
			updated_at = GREATEST(EXCLUDED.updated_at, pull_requests.updated_at + interval '1 microsecond')
		WHERE pull_requests.status <> $14
		RETURNING ` + prColumns

	var row prRow
	err = s.db.GetContext(ctx, &row, query,
		rec.ID, rec.Owner, rec.Repo, rec.Number, rec.Title, rec.Author, string(rec.Status),
		rec.ReviewRef, review, rec.Notes, nullAmount(rec.CreditedAmount), rec.PaymentAccountID,
		time.Now().UTC(), string(core.StatusCredited))
	if errors.Is(err, sql.ErrNoRows) {
		return s.Get(ctx, rec.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert pull request %s: %w", rec.ID, err)
	}
	return row.toRecord()
}

func (s *postgresStore) Get(ctx context.Context, key string) (*core.PRRecord, error) {
	var row prRow
	err := s.db.GetContext(ctx, &row, `SELECT `+prColumns+` FROM pull_requests WHERE id = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to load pull request %s: %w", key, err)
	}
	return row.toRecord()
}

// Update merges u under a row lock so concurrent writers to the same key serialize.
func (s *postgresStore) Update(ctx context.Context, key string, u core.PRUpdate) (*core.PRRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row prRow
	err = tx.GetContext(ctx, &row, `SELECT `+prColumns+` FROM pull_requests WHERE id = $1 FOR UPDATE`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock pull request %s: %w", key, err)
	}

	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	u.Apply(rec)

	review, err := reviewJSON(rec.Review)
	if err != nil {
		return nil, fmt.Errorf("failed to encode review: %w", err)
	}
	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	if !updatedAt.After(rec.UpdatedAt) {
		updatedAt = rec.UpdatedAt.Add(time.Microsecond)
	}

	query := `
		UPDATE pull_requests SET title = $2, status = $3, review_ref = $4, review = $5::jsonb, notes = $6,
			credited_amount = $7, payment_account_id = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + prColumns
	var out prRow
	err = tx.GetContext(ctx, &out, query, key, rec.Title, string(rec.Status), rec.ReviewRef, review,
		rec.Notes, nullAmount(rec.CreditedAmount), rec.PaymentAccountID, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update pull request %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update for %s: %w", key, err)
	}
	return out.toRecord()
}

func (s *postgresStore) List(ctx context.Context) ([]*core.PRRecord, error) {
	var rows []prRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+prColumns+` FROM pull_requests ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}
	out := make([]*core.PRRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pull_requests WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete pull request %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
	}
	return nil
}

func (s *postgresStore) ClaimCredit(ctx context.Context, key string) (*core.PRRecord, error) {
	query := `
		UPDATE pull_requests SET credit_claimed_at = now()
		WHERE id = $1 AND status = $2 AND credit_claimed_at IS NULL
		RETURNING ` + prColumns
	var row prRow
	err := s.db.GetContext(ctx, &row, query, key, string(core.StatusPass))
	if err == nil {
		return row.toRecord()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim credit for %s: %w", key, err)
	}

	current, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s has status %s", core.ErrDuplicateCredit, key, current.Status)
}

func (s *postgresStore) ReleaseCredit(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pull_requests SET credit_claimed_at = NULL WHERE id = $1 AND status = $2`,
		key, string(core.StatusPass))
	if err != nil {
		return fmt.Errorf("failed to release credit claim for %s: %w", key, err)
	}
	return nil
}

func (s *postgresStore) CompleteCredit(ctx context.Context, key string, c core.CreditCompletion) (*core.PRRecord, error) {
	query := `
		UPDATE pull_requests SET
			status = $2,
			credited_amount = $3,
			payment_account_id = $4,
			notes = CASE WHEN $5::text = '' THEN notes WHEN notes = '' THEN $5::text ELSE notes || E'\n' || $5::text END,
			credit_claimed_at = NULL,
			updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $1 AND status = $6 AND credit_claimed_at IS NOT NULL
		RETURNING ` + prColumns
	var row prRow
	err := s.db.GetContext(ctx, &row, query, key, string(core.StatusCredited), c.Amount,
		c.PaymentAccountID, c.Note, string(core.StatusPass))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s is no longer awaiting credit", core.ErrDuplicateCredit, key)
		}
		return nil, fmt.Errorf("failed to complete credit for %s: %w", key, err)
	}
	return row.toRecord()
}
