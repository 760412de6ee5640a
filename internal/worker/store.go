package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"
)

const taskBucket = "pending_tasks"

// TaskStore keeps tasks that have been accepted but not yet acknowledged.
// A task is written before its timer is armed and deleted only after its
// handler has finished, so a crash between the two leaves it on disk.
type TaskStore struct {
	db *bolt.DB
}

// OpenTaskStore opens (or creates) the bolt file at path
func OpenTaskStore(path string) (*TaskStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create task store dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(taskBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &TaskStore{db: db}, nil
}

// Close releases the file lock
func (s *TaskStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a task
func (s *TaskStore) Put(task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(taskBucket)).Put([]byte(task.ID), data)
	})
}

// Delete acknowledges a task. Deleting a missing task is a no-op.
func (s *TaskStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(taskBucket)).Delete([]byte(id))
	})
}

// Get returns a pending task or nil
func (s *TaskStore) Get(id string) (*Task, error) {
	var task *Task
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(taskBucket)).Get([]byte(id))
		if v == nil {
			return nil
		}
		task = &Task{}
		return json.Unmarshal(v, task)
	})
	return task, err
}

// List returns every pending task ordered by ETA
func (s *TaskStore) List() ([]*Task, error) {
	tasks := []*Task{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(taskBucket)).ForEach(func(k, v []byte) error {
			var t Task
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("corrupt task %s: %w", k, err)
			}
			tasks = append(tasks, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ETA.Before(tasks[j].ETA)
	})
	return tasks, nil
}
