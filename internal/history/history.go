package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// RunType identifies which operation a logged run performed.
type RunType string

const (
	RunExtract RunType = "extract"
	RunMatch   RunType = "match"
	RunSend    RunType = "send"
)

// Record is one delivery attempt to one recipient.
type Record struct {
	ID            int64
	RecipientName string
	Email         string
	Executive     string
	Template      string
	Status        Status
	MessageID     string
	Error         string
	SentAt        time.Time
	CreatedAt     time.Time
}

// Run summarizes one command invocation, so the dashboard can show what
// happened across restarts.
type Run struct {
	ID         int64
	Type       RunType
	Folder     string
	Rows       int
	Sent       int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Store struct {
	db *sql.DB
}

// scanRecord handles nullable columns when scanning a row
func scanRecord(scanner interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var sentAt, createdAt sql.NullTime
	var messageID, errStr sql.NullString

	err := scanner.Scan(&r.ID, &r.RecipientName, &r.Email, &r.Executive, &r.Template,
		&r.Status, &messageID, &errStr, &sentAt, &createdAt)
	if err != nil {
		return nil, err
	}

	r.MessageID = messageID.String
	r.Error = errStr.String
	r.SentAt = sentAt.Time
	r.CreatedAt = createdAt.Time
	return &r, nil
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS send_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recipient_name TEXT NOT NULL,
		email TEXT NOT NULL,
		executive TEXT,
		template TEXT NOT NULL,
		status TEXT NOT NULL,
		message_id TEXT,
		error TEXT,
		sent_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sl_email ON send_log(email);
	CREATE INDEX IF NOT EXISTS idx_sl_sent_at ON send_log(sent_at);
	CREATE INDEX IF NOT EXISTS idx_sl_status ON send_log(status);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		folder TEXT,
		rows INTEGER DEFAULT 0,
		sent INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_type ON runs(type);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (s *Store) Add(record *Record) error {
	query := `
	INSERT INTO send_log (recipient_name, email, executive, template, status, message_id, error, sent_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		record.RecipientName,
		record.Email,
		record.Executive,
		record.Template,
		record.Status,
		record.MessageID,
		record.Error,
		record.SentAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetLastSendTo returns the most recent attempt to an address, or nil when
// the address has never been contacted.
func (s *Store) GetLastSendTo(email string) (*Record, error) {
	query := `
	SELECT id, recipient_name, email, executive, template, status, message_id, error, sent_at, created_at
	FROM send_log WHERE email = ? COLLATE NOCASE ORDER BY sent_at DESC LIMIT 1`

	record, err := scanRecord(s.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	return record, nil
}

func (s *Store) GetRecentSends(limit int) ([]Record, error) {
	query := `
	SELECT id, recipient_name, email, executive, template, status, message_id, error, sent_at, created_at
	FROM send_log ORDER BY sent_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *Store) GetStats() (total, sent, failed int, err error) {
	query := `SELECT COUNT(*), SUM(CASE WHEN status='sent' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='failed' THEN 1 ELSE 0 END) FROM send_log`

	var sentNull, failedNull sql.NullInt64
	err = s.db.QueryRow(query).Scan(&total, &sentNull, &failedNull)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get stats: %w", err)
	}
	return total, int(sentNull.Int64), int(failedNull.Int64), nil
}

func (s *Store) GetMonthlyStats() (sent, failed int, err error) {
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	query := `SELECT SUM(CASE WHEN status='sent' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status='failed' THEN 1 ELSE 0 END) FROM send_log WHERE sent_at >= ?`

	var sentNull, failedNull sql.NullInt64
	err = s.db.QueryRow(query, startOfMonth).Scan(&sentNull, &failedNull)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get monthly stats: %w", err)
	}
	return int(sentNull.Int64), int(failedNull.Int64), nil
}

// ContactedSet returns the set of addresses that already received a
// successful send, lower-cased. Used to skip repeat outreach.
func (s *Store) ContactedSet() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT LOWER(email) FROM send_log WHERE status = 'sent'`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacted addresses: %w", err)
	}
	defer rows.Close()

	contacted := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan contacted address: %w", err)
		}
		contacted[email] = true
	}
	return contacted, rows.Err()
}

// DeleteByStatus deletes all records with the given status
func (s *Store) DeleteByStatus(status Status) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM send_log WHERE status = ?`, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return result.RowsAffected()
}

// AddRun logs a completed command invocation.
func (s *Store) AddRun(run *Run) error {
	query := `
	INSERT INTO runs (type, folder, rows, sent, failed, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		run.Type, run.Folder, run.Rows, run.Sent, run.Failed, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

func (s *Store) GetRecentRuns(limit int) ([]Run, error) {
	query := `
	SELECT id, type, folder, rows, sent, failed, started_at, finished_at
	FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var folder sql.NullString
		var startedAt, finishedAt sql.NullTime

		if err := rows.Scan(&r.ID, &r.Type, &folder, &r.Rows, &r.Sent, &r.Failed, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Folder = folder.String
		r.StartedAt = startedAt.Time
		r.FinishedAt = finishedAt.Time
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "outreach_history.db"
	}
	return filepath.Join(home, ".outreach", "history.db")
}
