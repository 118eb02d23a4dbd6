package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"GTAASentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance (dashboards read while the bot writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			eval_time    INTEGER NOT NULL,
			mode         TEXT,
			total_weight REAL,
			skipped      TEXT,
			stale        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_time ON evaluations(eval_time)`,

		`CREATE TABLE IF NOT EXISTS insights (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			evaluation_id TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			direction     TEXT NOT NULL,
			weight        REAL,
			expiry        INTEGER,
			stale         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insights_eval ON insights(evaluation_id)`,

		`CREATE TABLE IF NOT EXISTS targets (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			evaluation_id TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			weight        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_targets_eval ON targets(evaluation_id)`,

		`CREATE TABLE IF NOT EXISTS tracker_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			day         INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			samples     INTEGER,
			ready       INTEGER,
			sma         REAL,
			score       REAL,
			last_close  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_day ON tracker_snapshots(day)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvaluation(eval *model.Evaluation, targets []model.TargetWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO evaluations
		(id, timestamp, eval_time, mode, total_weight, skipped, stale)
		VALUES (?,?,?,?,?,?,?)`,
		eval.ID, time.Now().Unix(), eval.Time.Unix(), eval.Mode, eval.TotalWeight(),
		strings.Join(eval.Skipped, ","), strings.Join(eval.Stale, ","),
	); err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	for _, in := range eval.Insights {
		if _, err := tx.Exec(`INSERT INTO insights
			(evaluation_id, symbol, direction, weight, expiry, stale)
			VALUES (?,?,?,?,?,?)`,
			eval.ID, in.Symbol, string(in.Direction), in.Weight, in.Expiry.Unix(), in.Stale,
		); err != nil {
			return fmt.Errorf("insert insight %s: %w", in.Symbol, err)
		}
	}
	for _, tw := range targets {
		if _, err := tx.Exec(`INSERT INTO targets (evaluation_id, symbol, weight) VALUES (?,?,?)`,
			eval.ID, tw.Symbol, tw.Weight,
		); err != nil {
			return fmt.Errorf("insert target %s: %w", tw.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordSnapshots(day time.Time, snaps []model.TrackerSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	for _, s := range snaps {
		if _, err := r.db.Exec(`INSERT INTO tracker_snapshots
			(timestamp, day, symbol, samples, ready, sma, score, last_close)
			VALUES (?,?,?,?,?,?,?,?)`,
			now, day.Unix(), s.Symbol, s.Samples, s.Ready, s.SMA, s.Score, s.LastClose,
		); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", s.Symbol, err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) LatestEvaluation() (*model.Evaluation, []model.TargetWeight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		eval           model.Evaluation
		evalTime       int64
		skipped, stale string
	)
	err := r.db.QueryRow(`SELECT id, eval_time, mode, skipped, stale FROM evaluations
		ORDER BY eval_time DESC, timestamp DESC LIMIT 1`).
		Scan(&eval.ID, &evalTime, &eval.Mode, &skipped, &stale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query evaluation: %w", err)
	}
	eval.Time = time.Unix(evalTime, 0).UTC()
	eval.Skipped = splitList(skipped)
	eval.Stale = splitList(stale)

	rows, err := r.db.Query(`SELECT symbol, direction, weight, expiry, stale FROM insights
		WHERE evaluation_id = ? ORDER BY id`, eval.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("query insights: %w", err)
	}
	for rows.Next() {
		var (
			in     model.Insight
			dir    string
			expiry int64
		)
		if err := rows.Scan(&in.Symbol, &dir, &in.Weight, &expiry, &in.Stale); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Direction = model.Direction(dir)
		in.Expiry = time.Unix(expiry, 0).UTC()
		eval.Insights = append(eval.Insights, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	trows, err := r.db.Query(`SELECT symbol, weight FROM targets WHERE evaluation_id = ? ORDER BY symbol`, eval.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("query targets: %w", err)
	}
	defer trows.Close()
	var targets []model.TargetWeight
	for trows.Next() {
		var tw model.TargetWeight
		if err := trows.Scan(&tw.Symbol, &tw.Weight); err != nil {
			return nil, nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, tw)
	}
	return &eval, targets, trows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
