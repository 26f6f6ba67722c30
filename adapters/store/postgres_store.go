package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/layer-3/walletauth/adapters/store/migrations"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/stellar"
)

// DBTX is the subset of *sql.DB the transfer store needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

const transferColumns = `id, address, network, direction, status, asset_type, asset_code, asset_issuer, amount, transaction_hash, created_at`

// PostgresTransferStore keeps recorded transfers in Postgres
type PostgresTransferStore struct {
	db           DBTX
	maxTransfers int
}

// NewPostgresTransferStore keeps at most maxTransfers rows per address. Zero or less means unbounded.
func NewPostgresTransferStore(db DBTX, maxTransfers int) *PostgresTransferStore {
	return &PostgresTransferStore{db: db, maxTransfers: maxTransfers}
}

// OpenPostgres opens a pgx backed pool and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return db, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *PostgresTransferStore) FindTransfer(ctx context.Context, key core.TransferKey) (*core.Transfer, error) {
	query :=
		`SELECT ` + transferColumns + ` FROM wallet_transfers
		 WHERE address = $1 AND transaction_hash = $2 AND direction = $3
		 `

	transfer, err := scanTransfer(s.db.QueryRowContext(ctx, query, key.Address, key.TransactionHash, key.Direction.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transfer, nil
}

func (s *PostgresTransferStore) InsertTransfer(ctx context.Context, transfer *core.Transfer) (*core.Transfer, bool, error) {
	insert :=
		`INSERT INTO wallet_transfers (` + transferColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (address, transaction_hash, direction) DO NOTHING
		 RETURNING id
		 `

	trim :=
		`DELETE FROM wallet_transfers
		 WHERE address = $1 AND id NOT IN (
		     SELECT id FROM wallet_transfers WHERE address = $1
		     ORDER BY created_at DESC, id DESC LIMIT $2
		 )
		 `

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	var id string
	err = tx.QueryRowContext(ctx, insert,
		transfer.ID, transfer.Address, transfer.Network, transfer.Direction.String(), string(transfer.Status),
		string(transfer.Asset.Type), transfer.Asset.Code, transfer.Asset.Issuer, transfer.Amount,
		transfer.TransactionHash, transfer.CreatedAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()

		existing, err := s.FindTransfer(ctx, transfer.Key())
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("db error: transfer %s conflicted but was not found", transfer.Key())
		}
		return existing, false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	if s.maxTransfers > 0 {
		if _, err := tx.ExecContext(ctx, trim, transfer.Address, s.maxTransfers); err != nil {
			_ = tx.Rollback()
			return nil, false, fmt.Errorf("db error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	stored := *transfer
	return &stored, true, nil
}

func (s *PostgresTransferStore) ListTransfers(ctx context.Context, address string) ([]core.Transfer, error) {
	query :=
		`SELECT ` + transferColumns + ` FROM wallet_transfers
		 WHERE address = $1
		 ORDER BY created_at DESC, id DESC
		 `

	rows, err := s.db.QueryContext(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*core.Transfer, error) {
	var (
		t         core.Transfer
		direction string
		status    string
		assetType string
		amount    decimal.Decimal
	)

	err := row.Scan(&t.ID, &t.Address, &t.Network, &direction, &status,
		&assetType, &t.Asset.Code, &t.Asset.Issuer, &amount, &t.TransactionHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Direction, err = core.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	t.Status = core.TransferStatus(status)
	t.Asset.Type = stellar.AssetType(assetType)
	t.Amount = amount.String()

	return &t, nil
}
