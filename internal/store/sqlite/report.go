// Package sqlite persists the append-only scan and diagnostic reports
// (spec §6 "Persisted artifacts") with the same single-writer,
// WAL-mode, transaction-batched idiom the teacher's candle writer uses
// for market data, repointed at scan rows and diagnostic snapshots
// instead of candles.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the report Writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/scanner.db"
}

// Writer is a single-goroutine, transaction-batched SQLite writer for
// scan rows and diagnostic reports. It implements model.ReportWriter.
type Writer struct {
	db *sql.DB

	batch     []scanRowJSON
	lastFlush time.Time
}

type scanRowJSON struct {
	symbol    string
	timeframe string
	at        int64
	data      []byte
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens (creating if necessary) the report database in WAL mode and
// ensures its schema exists.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer: report rows arrive from one scanner tick goroutine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger.Default.Info().Str("path", cfg.DBPath).Msg("sqlite: opened report database")
	return &Writer{db: db, lastFlush: time.Now()}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_rows (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			data       TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scan_rows_symbol_ts ON scan_rows (symbol, ts);

		CREATE TABLE IF NOT EXISTS diagnostic_reports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// WriteScanRow buffers row for the next batch flush (spec §6's scan
// report is append-only and not read back by the core, so a small
// write-behind delay is acceptable). Flushes immediately once
// defaultBatchSize rows have accumulated.
func (w *Writer) WriteScanRow(ctx context.Context, row model.ScanRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal scan row: %w", err)
	}

	w.batch = append(w.batch, scanRowJSON{
		symbol:    row.Symbol,
		timeframe: string(row.Timeframe),
		at:        row.At,
		data:      data,
	})

	if len(w.batch) >= defaultBatchSize || time.Since(w.lastFlush) >= defaultFlushDelay {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if len(w.batch) == 0 {
		w.lastFlush = time.Now()
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO scan_rows (symbol, timeframe, ts, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range w.batch {
		if _, err := stmt.Exec(row.symbol, row.timeframe, row.at, row.data); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	w.batch = w.batch[:0]
	w.lastFlush = time.Now()
	return nil
}

// WriteDiagnosticReport persists one diagnostic report snapshot,
// flushing any buffered scan rows first so the two streams stay
// roughly ordered on disk.
func (w *Writer) WriteDiagnosticReport(ctx context.Context, report model.DiagnosticReport) error {
	if err := w.flush(); err != nil {
		return fmt.Errorf("flush scan rows: %w", err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal diagnostic report: %w", err)
	}

	if _, err := w.db.Exec(`INSERT INTO diagnostic_reports (data) VALUES (?)`, string(data)); err != nil {
		return fmt.Errorf("sqlite insert diagnostic report: %w", err)
	}
	return nil
}

// Close flushes any buffered scan rows and closes the database.
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		logger.Default.Warn().Err(err).Msg("sqlite: final flush failed on close")
	}
	return w.db.Close()
}
