package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	dbconfig "github.com/Emixee/intimacy-play-sub001/pkg/database"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Store is the SQLite-backed SessionStore. All writes are funneled through
// a single writer goroutine: SQLite tolerates concurrent reads under WAL
// but contended writes degrade quickly.
type Store struct {
	db           *sql.DB
	config       *dbconfig.Config
	notifier     interfaces.Notifier
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the database, applies pragmas and creates the schema.
func NewStore(config *dbconfig.Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplyOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	if err := dbconfig.InitializeSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

// SetNotifier attaches a change listener. Every successful write publishes
// the full session snapshot, so observers see whole documents only, never
// partial state.
func (s *Store) SetNotifier(n interfaces.Notifier) {
	s.notifier = n
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			op.result <- op.operation(s.db)
		case <-s.shutdown:
			log.Println("Session store write loop shutting down")
			return
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("session store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return fmt.Errorf("session store is shutting down")
	}
}

// Create persists a new session document.
func (s *Store) Create(ctx context.Context, session *types.Session) error {
	session.Version = 1
	document, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO sessions (code, creator_id, partner_id, status, version, created_at, updated_at, document)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			session.Code, session.CreatorID, nullable(session.PartnerID), string(session.Status),
			session.Version, session.CreatedAt, time.Now(), string(document),
		)
		if err != nil && isUniqueViolation(err) {
			return interfaces.ErrCodeTaken
		}
		return err
	})
	if err != nil {
		return err
	}

	s.publish(session)
	return nil
}

// Get retrieves a session document by code.
func (s *Store) Get(ctx context.Context, code string) (*types.Session, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM sessions WHERE code = ?`, code,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return unmarshalSession(document)
}

// Update replaces the document if the stored version still matches,
// bumping the version on success. A zero-row update means another writer
// won the race and the caller must retry from a fresh read.
func (s *Store) Update(ctx context.Context, session *types.Session) error {
	expected := session.Version
	session.Version = expected + 1

	document, err := json.Marshal(session)
	if err != nil {
		session.Version = expected
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE sessions
			SET partner_id = ?, status = ?, version = ?, updated_at = ?, document = ?
			WHERE code = ? AND version = ?`,
			nullable(session.PartnerID), string(session.Status), session.Version,
			time.Now(), string(document), session.Code, expected,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Either the code vanished or the version moved on.
			var exists int
			row := db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE code = ?`, session.Code)
			if scanErr := row.Scan(&exists); errors.Is(scanErr, sql.ErrNoRows) {
				return interfaces.ErrSessionNotFound
			}
			return interfaces.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		session.Version = expected
		return err
	}

	s.publish(session)
	return nil
}

// Delete removes a session document.
func (s *Store) Delete(ctx context.Context, code string) error {
	return s.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE code = ?`, code)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return interfaces.ErrSessionNotFound
		}
		return nil
	})
}

// SessionsByUser returns every session the user created or joined.
func (s *Store) SessionsByUser(ctx context.Context, userID string) ([]*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document FROM sessions
		WHERE creator_id = ? OR partner_id = ?
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session, err := unmarshalSession(document)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// HealthCheck verifies connectivity and schema presence.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return dbconfig.ValidateSchema(s.db)
}

// Close stops the writer goroutine and closes the pool.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) publish(session *types.Session) {
	if s.notifier != nil {
		s.notifier.Publish(session.Clone())
	}
}

func unmarshalSession(document string) (*types.Session, error) {
	var session types.Session
	if err := json.Unmarshal([]byte(document), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session document: %w", err)
	}
	if session.ChangesUsed == nil {
		session.ChangesUsed = make(map[types.Role]int)
	}
	if session.BonusChanges == nil {
		session.BonusChanges = make(map[types.Role]int)
	}
	return &session, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	// mattn/go-sqlite3 reports constraint failures with this prefix; a
	// typed check would drag the driver into the public surface.
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}
