package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const tasksBucket = "tasks"

// ErrTaskNotFound is returned for an unknown task ID.
var ErrTaskNotFound = errors.New("task not found")

// Store persists tasks in a bbolt database, one JSON value per task ID.
type Store struct {
	db *bolt.DB
}

// OpenStore opens or creates the database at path. Only one process can hold
// it open; a second opener gives up after a second.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tasksBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a task.
func (s *Store) Put(task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tasksBucket)).Put([]byte(task.ID), data)
	})
}

// Get loads one task.
func (s *Store) Get(id string) (*Task, error) {
	var task *Task
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(tasksBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		task = &Task{}
		return json.Unmarshal(data, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies fn to a task inside one write transaction. The task is
// saved only when fn returns nil.
func (s *Store) Update(id string, fn func(*Task) error) (*Task, error) {
	var task *Task
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(tasksBucket))
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		task = &Task{}
		if err := json.Unmarshal(data, task); err != nil {
			return fmt.Errorf("failed to unmarshal task %s: %w", id, err)
		}
		if err := fn(task); err != nil {
			return err
		}
		out, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns every task, oldest first.
func (s *Store) List() ([]*Task, error) {
	tasks := []*Task{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tasksBucket)).ForEach(func(k, v []byte) error {
			task := &Task{}
			if err := json.Unmarshal(v, task); err != nil {
				return fmt.Errorf("failed to unmarshal task %s: %w", k, err)
			}
			tasks = append(tasks, task)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Delete removes a task. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tasksBucket)).Delete([]byte(id))
	})
}
