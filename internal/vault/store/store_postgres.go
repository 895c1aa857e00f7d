package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"satsvault/internal/sentinel"
	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
)

// PostgresStore persists vault records in PostgreSQL.
//
// The state/time secondary index is the btree on
// (owner_id, kind, state, created_at, record_id); because it is a database
// index over the row itself, it can never disagree with the record's current
// state, and every conditional UPDATE swaps both atomically.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed vault store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed vault store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const recordColumns = "owner_id, kind, record_id, state, payload, created_at, updated_at"

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	query := `
		INSERT INTO vault_records (owner_id, kind, record_id, state, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, kind, record_id) DO NOTHING
	`
	res, err := s.execer().ExecContext(ctx, query,
		string(rec.OwnerID),
		string(rec.Kind),
		string(rec.ID),
		string(rec.State),
		[]byte(rec.Payload),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyExists
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID) (*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM vault_records
		WHERE owner_id = $1 AND kind = $2 AND record_id = $3
	`
	rec, err := scanRecord(s.execer().QueryRowContext(ctx, query, string(ownerID), string(kind), string(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, state models.State, filter *models.ListFilter, limit int, cursor *models.Cursor) (*models.Page, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + recordColumns + `
		FROM vault_records
		WHERE owner_id = $1 AND kind = $2 AND state = $3
	`)
	args := []any{string(ownerID), string(kind), string(state)}

	if cursor != nil {
		fmt.Fprintf(&sb, " AND (created_at, record_id) > ($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, cursor.CreatedAt, string(cursor.ID))
	}
	if filter != nil && filter.CreatedAfter != nil {
		fmt.Fprintf(&sb, " AND created_at > $%d", len(args)+1)
		args = append(args, *filter.CreatedAfter)
	}
	if filter != nil && filter.CreatedBefore != nil {
		fmt.Fprintf(&sb, " AND created_at < $%d", len(args)+1)
		args = append(args, *filter.CreatedBefore)
	}

	sb.WriteString(" ORDER BY created_at ASC, record_id ASC")
	if limit > 0 {
		// One extra row decides whether a next page exists.
		fmt.Fprintf(&sb, " LIMIT $%d", len(args)+1)
		args = append(args, limit+1)
	}

	rows, err := s.execer().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	page := &models.Page{Records: records}
	if limit > 0 && len(records) > limit {
		page.Records = records[:limit]
		last := page.Records[limit-1]
		next := models.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		page.NextCursor = next.Encode()
	}
	return page, nil
}

func (s *PostgresStore) Transition(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, expected, target models.State, at time.Time) (*models.Record, error) {
	query := `
		UPDATE vault_records
		SET state = $5, updated_at = $6
		WHERE owner_id = $1 AND kind = $2 AND record_id = $3 AND state = $4
		RETURNING ` + recordColumns + `
	`
	rec, err := scanRecord(s.execer().QueryRowContext(ctx, query,
		string(ownerID), string(kind), string(recordID), string(expected), string(target), at))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition record: %w", err)
	}

	// The conditional write matched nothing: tell absence apart from a
	// concurrent state change so the caller can retry with fresh state.
	if _, getErr := s.Get(ctx, ownerID, kind, recordID); getErr != nil {
		if errors.Is(getErr, sentinel.ErrNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, getErr
	}
	return nil, sentinel.ErrConflict
}

func (s *PostgresStore) UpdatePayload(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, payload models.Ciphertext, at time.Time) (*models.Record, error) {
	query := `
		UPDATE vault_records
		SET payload = $4, updated_at = $5
		WHERE owner_id = $1 AND kind = $2 AND record_id = $3
		RETURNING ` + recordColumns + `
	`
	rec, err := scanRecord(s.execer().QueryRowContext(ctx, query,
		string(ownerID), string(kind), string(recordID), []byte(payload), at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update payload: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetMetadata(ctx context.Context, ownerID id.OwnerID) (*models.WalletMetadata, error) {
	query := `
		SELECT owner_id, mint_urls, default_mint_url, created_at, updated_at
		FROM wallet_metadata
		WHERE owner_id = $1
	`
	var meta models.WalletMetadata
	var owner string
	var mintURLs []byte
	err := s.execer().QueryRowContext(ctx, query, string(ownerID)).
		Scan(&owner, &mintURLs, &meta.DefaultMintURL, &meta.CreatedAt, &meta.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	meta.OwnerID = id.OwnerID(owner)
	if err := json.Unmarshal(mintURLs, &meta.MintURLs); err != nil {
		return nil, fmt.Errorf("decode mint urls: %w", err)
	}
	return &meta, nil
}

func (s *PostgresStore) PutMetadata(ctx context.Context, meta *models.WalletMetadata) error {
	if meta == nil {
		return fmt.Errorf("metadata is required")
	}
	mintURLs, err := json.Marshal(meta.MintURLs)
	if err != nil {
		return fmt.Errorf("encode mint urls: %w", err)
	}
	query := `
		INSERT INTO wallet_metadata (owner_id, mint_urls, default_mint_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE
		SET mint_urls = EXCLUDED.mint_urls,
		    default_mint_url = EXCLUDED.default_mint_url,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := s.execer().ExecContext(ctx, query,
		string(meta.OwnerID), mintURLs, meta.DefaultMintURL, meta.CreatedAt, meta.UpdatedAt); err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOwner(ctx context.Context, ownerID id.OwnerID) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vault_records WHERE owner_id = $1`, string(ownerID)); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM wallet_metadata WHERE owner_id = $1`, string(ownerID)); err != nil {
			return fmt.Errorf("delete metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete owner: %w", err)
	}
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var owner, kind, recordID, state string
	var payload []byte
	if err := row.Scan(&owner, &kind, &recordID, &state, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.OwnerID = id.OwnerID(owner)
	rec.Kind = models.Kind(kind)
	rec.ID = id.RecordID(recordID)
	rec.State = models.State(state)
	rec.Payload = models.Ciphertext(payload)
	return &rec, nil
}
