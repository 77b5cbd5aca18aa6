// Package session manages dataset lifecycle: one SQLite store per dataset
// id, opened lazily and guarded by a per-dataset lock so concurrent turns
// against the same dataset serialize instead of interleaving writes.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Kinder1203/SpeakNode/internal/llm"
	"github.com/Kinder1203/SpeakNode/internal/store"
)

var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Session is one dataset's open handle plus its conversation history.
// Callers must hold the lock for the duration of a turn.
type Session struct {
	mu      sync.Mutex
	ID      string
	Store   *store.Store
	History []llm.Message
}

// Lock serializes turns against this dataset.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the dataset for the next turn.
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager hands out sessions by dataset id.
type Manager struct {
	dataDir string
	dims    int
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager stores datasets under dataDir, one database file each.
func NewManager(dataDir string, dims int, logger zerolog.Logger) *Manager {
	return &Manager{
		dataDir:  dataDir,
		dims:     dims,
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// ValidateID rejects dataset ids that could escape the data directory or
// collide with file naming.
func ValidateID(id string) error {
	if !datasetIDPattern.MatchString(id) {
		return fmt.Errorf("invalid dataset id %q: use letters, digits, '-' and '_'", id)
	}
	return nil
}

// Get returns the session for a dataset, opening (and creating) its store
// on first use.
func (m *Manager) Get(id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}

	st, err := store.Open(m.path(id), m.dims, m.log.With().Str("dataset", id).Logger())
	if err != nil {
		return nil, fmt.Errorf("opening dataset %q: %w", id, err)
	}
	sess := &Session{ID: id, Store: st}
	m.sessions[id] = sess
	m.log.Info().Str("dataset", id).Msg("dataset opened")
	return sess, nil
}

// List names every dataset on disk, open or not.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".db"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Reset closes and deletes a dataset. The next Get starts it empty.
func (m *Manager) Reset(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.Lock()
		defer sess.Unlock()
		if err := sess.Store.Close(); err != nil {
			return fmt.Errorf("closing dataset %q: %w", id, err)
		}
		delete(m.sessions, id)
	}

	base := m.path(id)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting dataset %q: %w", id, err)
		}
	}
	m.log.Info().Str("dataset", id).Msg("dataset reset")
	return nil
}

// Close shuts down every open session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for id, sess := range m.sessions {
		if err := sess.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing dataset %q: %w", id, err)
		}
		delete(m.sessions, id)
	}
	return firstErr
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dataDir, id+".db")
}
