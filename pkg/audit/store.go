package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

const insertMessage = `INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Store keeps events in the messages table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens the database named by AUDIT_DATABASE_URL. Without it the
// store is nil and events are only logged.
func NewStore() (*Store, error) {
	url := os.Getenv("AUDIT_DATABASE_URL")
	if url == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return NewStoreWithDB(db), nil
}

func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts one row for the event. The structured data is kept as JSON.
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	r := newRecord(event, now())

	sdata, err := json.Marshal(r.StructuredData())
	if err != nil {
		return fmt.Errorf("encoding %s structured data: %w", r.MessageID(), err)
	}
	if _, err := s.db.Exec(insertMessage,
		r.Facility(), int(r.Severity()), r.at, r.host, appName, r.pid, r.MessageID(), sdata, r.Message(),
	); err != nil {
		return fmt.Errorf("inserting %s message: %w", r.MessageID(), err)
	}
	return nil
}
