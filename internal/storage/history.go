package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	HistoryDirName = "history"
	MaxHistory     = 100
)

// HistoryEntry records one request handled in an interactive session.
type HistoryEntry struct {
	Request string    `json:"request"`
	Command string    `json:"command,omitempty"`
	Level   string    `json:"level,omitempty"`
	Outcome string    `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}

// Session is the request history of one interactive session. Its ID also
// tags the tasks the session defers.
type Session struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Entries   []HistoryEntry `json:"entries"`

	dir string
}

// NewSession starts an empty session stored under <dir>/history.
func NewSession(dir string) *Session {
	now := time.Now()
	return &Session{
		ID:        generateSessionID(now),
		StartedAt: now,
		UpdatedAt: now,
		Entries:   []HistoryEntry{},
		dir:       filepath.Join(dir, HistoryDirName),
	}
}

// LoadSession reads a saved session.
func LoadSession(dir, id string) (*Session, error) {
	hdir := filepath.Join(dir, HistoryDirName)
	data, err := os.ReadFile(filepath.Join(hdir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	s.dir = hdir
	return &s, nil
}

// ListSessions returns the saved session IDs, newest first.
func ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, HistoryDirName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Add appends an entry and saves the session.
func (s *Session) Add(entry HistoryEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	s.Entries = append(s.Entries, entry)
	return s.Save()
}

// Save writes the session, keeping only the newest MaxHistory entries.
func (s *Session) Save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	s.UpdatedAt = time.Now()
	if len(s.Entries) > MaxHistory {
		s.Entries = s.Entries[len(s.Entries)-MaxHistory:]
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, s.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear drops the entries and deletes the saved file.
func (s *Session) Clear() error {
	s.Entries = []HistoryEntry{}
	err := os.Remove(filepath.Join(s.dir, s.ID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func generateSessionID(now time.Time) string {
	return fmt.Sprintf("%d-%02d-%02d-%02d%02d%02d-%09d",
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		now.Minute(),
		now.Second(),
		now.Nanosecond())
}
