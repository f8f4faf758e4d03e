// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package store is the PostgreSQL source of truth for tournament roles and
// permission grants.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/tournament"
)

// poolIface is the subset of *pgxpool.Pool used by the store. pgx.Tx and
// pgxmock pools satisfy it too.
type poolIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier runs statements on a pool or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open connects a pool and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// PostgresTournamentService implements tournament.Service on PostgreSQL.
//
// Positions of a tournament's roles are always a contiguous 0..N-1 sequence:
// deleting a role closes the gap and a persisted order must name exactly the
// tournament's current roles.
type PostgresTournamentService struct {
	pool poolIface
}

// NewPostgresTournamentService creates the service on a pool.
func NewPostgresTournamentService(pool poolIface) *PostgresTournamentService {
	return &PostgresTournamentService{pool: pool}
}

// InTransaction runs fn with a service bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Operations
// that open their own transaction run as savepoints inside it.
func (s *PostgresTournamentService) InTransaction(ctx context.Context, fn func(tx *PostgresTournamentService) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(&PostgresTournamentService{pool: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// ensureTournament returns ErrTournamentNotFound unless the tournament exists.
func ensureTournament(ctx context.Context, q querier, tournamentID ulid.ULID) error {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM tournaments WHERE id = $1`, tournamentID.String()).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.In("store").
			Code(tournament.CodeTournamentNotFound).
			With("tournament_id", tournamentID.String()).
			Wrap(tournament.ErrTournamentNotFound)
	}
	if err != nil {
		return oops.In("store").
			With("operation", "check tournament").
			With("tournament_id", tournamentID.String()).
			Wrap(err)
	}
	return nil
}

func checkAction(action tournament.Action) error {
	if action.Valid() {
		return nil
	}
	return oops.In("store").
		Code(tournament.CodeUnknownAction).
		With("action", string(action)).
		Wrap(tournament.ErrUnknownAction)
}

// pgCode returns the SQLSTATE of a PostgreSQL error, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}

func idStrings(ids []ulid.ULID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// scanIDs collects a single text id column.
func scanIDs(rows pgx.Rows, column string) ([]ulid.ULID, error) {
	defer rows.Close()

	var ids []ulid.ULID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, oops.With("operation", "scan "+column).Wrap(err)
		}
		id, err := ulid.Parse(raw)
		if err != nil {
			return nil, oops.With("operation", "parse "+column).With(column, raw).Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate "+column).Wrap(err)
	}
	return ids, nil
}

var _ tournament.Service = (*PostgresTournamentService)(nil)
