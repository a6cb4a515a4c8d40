package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manelneto/penguin/pkg/link"
)

// Entry is one ledger row: a snapshot of a connection's Stats plus the
// file name involved and any terminal error it hit.
type Entry struct {
	ID                 string
	Role               string
	Device             string
	FileName           string
	StartedAt          time.Time
	EndedAt            time.Time
	BytesSent          int
	BytesReceived      int
	FramesSent         int
	FramesReceived     int
	Retransmissions    int
	TimerExpirations   int
	RejectsSent        int
	RejectsReceived    int
	DuplicatesReceived int
	Error              string
}

// EntryFromStats builds an Entry from a connection's Stats, ready for
// Record. fileName and transferErr are supplied by the caller since the
// link layer itself does not know about files.
func EntryFromStats(stats link.Stats, fileName string, transferErr error) Entry {
	e := Entry{
		ID:                 uuid.NewString(),
		Role:               stats.Role.String(),
		Device:             stats.Device,
		FileName:           fileName,
		StartedAt:          stats.StartedAt,
		EndedAt:            stats.EndedAt,
		BytesSent:          stats.BytesSent,
		BytesReceived:      stats.BytesReceived,
		FramesSent:         stats.FramesSent,
		FramesReceived:     stats.FramesReceived,
		Retransmissions:    stats.Retransmissions,
		TimerExpirations:   stats.TimerExpirations,
		RejectsSent:        stats.RejectsSent,
		RejectsReceived:    stats.RejectsReceived,
		DuplicatesReceived: stats.DuplicatesReceived,
	}
	if transferErr != nil {
		e.Error = transferErr.Error()
	}
	return e
}

// Record inserts e, generating an ID if it doesn't already have one.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (
			id, role, device, file_name, started_at, ended_at,
			bytes_sent, bytes_received, frames_sent, frames_received,
			retransmissions, timer_expirations, rejects_sent,
			rejects_received, duplicates_received, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Role, e.Device, e.FileName,
		e.StartedAt.UTC().Format(time.RFC3339Nano), e.EndedAt.UTC().Format(time.RFC3339Nano),
		e.BytesSent, e.BytesReceived, e.FramesSent, e.FramesReceived,
		e.Retransmissions, e.TimerExpirations, e.RejectsSent,
		e.RejectsReceived, e.DuplicatesReceived, e.Error,
	)
	if err != nil {
		return fmt.Errorf("history: insert transfer: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recently started first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, device, file_name, started_at, ended_at,
			bytes_sent, bytes_received, frames_sent, frames_received,
			retransmissions, timer_expirations, rejects_sent,
			rejects_received, duplicates_received, error
		FROM transfers
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query transfers: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns a single entry by ID, or sql.ErrNoRows if it doesn't exist.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, device, file_name, started_at, ended_at,
			bytes_sent, bytes_received, frames_sent, frames_received,
			retransmissions, timer_expirations, rejects_sent,
			rejects_received, duplicates_received, error
		FROM transfers
		WHERE id = ?
	`, id)

	var e Entry
	var started, ended string
	err := row.Scan(
		&e.ID, &e.Role, &e.Device, &e.FileName, &started, &ended,
		&e.BytesSent, &e.BytesReceived, &e.FramesSent, &e.FramesReceived,
		&e.Retransmissions, &e.TimerExpirations, &e.RejectsSent,
		&e.RejectsReceived, &e.DuplicatesReceived, &e.Error,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: scan transfer %s: %w", id, err)
	}
	e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	e.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, ended string
		if err := rows.Scan(
			&e.ID, &e.Role, &e.Device, &e.FileName, &started, &ended,
			&e.BytesSent, &e.BytesReceived, &e.FramesSent, &e.FramesReceived,
			&e.Retransmissions, &e.TimerExpirations, &e.RejectsSent,
			&e.RejectsReceived, &e.DuplicatesReceived, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("history: scan transfer row: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
