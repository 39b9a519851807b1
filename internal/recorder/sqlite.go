package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"CryptoBoard/internal/logger"
	"CryptoBoard/internal/model"
)

// ErrNoSnapshot is returned by Latest when nothing was recorded for a unit.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// SQLiteRecorder persists board history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.GetLogger().WithComponent("recorder").WithFields(logger.Fields{"path": dbPath}).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			unit       TEXT NOT NULL,
			row_count  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(unit, timestamp)`,

		`CREATE TABLE IF NOT EXISTS snapshot_rows (
			snapshot_id        TEXT NOT NULL REFERENCES snapshots(id),
			position           INTEGER NOT NULL,
			coin_name          TEXT,
			coin_symbol        TEXT,
			market_cap         REAL,
			percent_change_1h  REAL,
			percent_change_24h REAL,
			percent_change_7d  REAL,
			percent_change_30d REAL,
			percent_change_90d REAL,
			price              REAL,
			volume_24h         REAL,
			PRIMARY KEY (snapshot_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_symbol ON snapshot_rows(coin_symbol)`,

		`CREATE TABLE IF NOT EXISTS refresh_failures (
			id        TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			unit      TEXT,
			kind      TEXT,
			attempts  INTEGER,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON refresh_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot stores the snapshot header and every row in one transaction.
func (r *SQLiteRecorder) RecordSnapshot(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO snapshots (id, timestamp, unit, row_count) VALUES (?,?,?,?)`,
		snap.ID.String(), snap.Time.UnixMilli(), string(snap.Unit), len(snap.Table.Rows),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot_rows
		(snapshot_id, position, coin_name, coin_symbol, market_cap,
		 percent_change_1h, percent_change_24h, percent_change_7d, percent_change_30d, percent_change_90d,
		 price, volume_24h)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for i, row := range snap.Table.Rows {
		if _, err := stmt.Exec(snap.ID.String(), i, row.Name, row.Symbol, row.MarketCap,
			row.PercentChange1h, row.PercentChange24h, row.PercentChange7d, row.PercentChange30d, row.PercentChange90d,
			row.Price, row.Volume24h,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordFailure(evt *Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_failures
		(id, timestamp, unit, kind, attempts, message)
		VALUES (?,?,?,?,?,?)`,
		evt.ID.String(), evt.Time.UnixMilli(), string(evt.Unit), evt.Kind, evt.Attempts, evt.Message,
	)
	return err
}

// Latest loads the most recent snapshot recorded for unit.
func (r *SQLiteRecorder) Latest(unit model.Unit) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		id string
		ms int64
	)
	err := r.db.QueryRow(`SELECT id, timestamp FROM snapshots WHERE unit = ?
		ORDER BY timestamp DESC, rowid DESC LIMIT 1`, string(unit)).Scan(&id, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNoSnapshot, unit)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot id: %w", err)
	}

	rows, err := r.db.Query(`SELECT coin_name, coin_symbol, market_cap,
		percent_change_1h, percent_change_24h, percent_change_7d, percent_change_30d, percent_change_90d,
		price, volume_24h
		FROM snapshot_rows WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	ts := time.UnixMilli(ms)
	table := model.InstrumentTable{Unit: unit, Rows: []model.InstrumentRow{}, FetchedAt: ts}
	for rows.Next() {
		var row model.InstrumentRow
		if err := rows.Scan(&row.Name, &row.Symbol, &row.MarketCap,
			&row.PercentChange1h, &row.PercentChange24h, &row.PercentChange7d, &row.PercentChange30d, &row.PercentChange90d,
			&row.Price, &row.Volume24h,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Snapshot{ID: runID, Time: ts, Unit: unit, Table: table}, nil
}

// FailureCount reports how many failed refreshes were recorded.
func (r *SQLiteRecorder) FailureCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM refresh_failures`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	logger.GetLogger().WithComponent("recorder").Info("closing sqlite recorder")
	return r.db.Close()
}
