package history

import (
	"context"
	"fmt"
)

// ledgerVersion is stamped into SQLite's user_version pragma when the
// transfers table is created; a future layout change would bump it and
// rewrite older files here.
const ledgerVersion = 1

// One row per completed or failed connection.
const ledgerDDL = `
CREATE TABLE IF NOT EXISTS transfers (
    id                   TEXT PRIMARY KEY,
    role                 TEXT NOT NULL,
    device               TEXT NOT NULL,
    file_name            TEXT NOT NULL DEFAULT '',
    started_at           TEXT NOT NULL,
    ended_at             TEXT NOT NULL,
    bytes_sent           INTEGER NOT NULL DEFAULT 0,
    bytes_received       INTEGER NOT NULL DEFAULT 0,
    frames_sent          INTEGER NOT NULL DEFAULT 0,
    frames_received      INTEGER NOT NULL DEFAULT 0,
    retransmissions      INTEGER NOT NULL DEFAULT 0,
    timer_expirations    INTEGER NOT NULL DEFAULT 0,
    rejects_sent         INTEGER NOT NULL DEFAULT 0,
    rejects_received     INTEGER NOT NULL DEFAULT 0,
    duplicates_received  INTEGER NOT NULL DEFAULT 0,
    error                TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transfers_started_at ON transfers(started_at);
`

// Migrate brings the database file up to the current ledger layout. The
// ledger has a single fixed schema, so this is a one-shot bootstrap: it
// creates the transfers table on first use and is a no-op afterwards.
func (s *Store) Migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("history: read ledger version: %w", err)
	}
	if version >= ledgerVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin bootstrap: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ledgerDDL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("history: create transfers table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, ledgerVersion)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("history: stamp ledger version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit bootstrap: %w", err)
	}
	return nil
}
