// Package storage provides persistent storage for prediction outcomes.
// It uses BoltDB as the underlying storage engine and keeps one JSON record per
// predict action, keyed by time so history reads are ordered range scans.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"learnstyle/internal/features"
	"learnstyle/internal/votes"
)

const (
	predictionsBucket = "predictions"     // Entries keyed by "<unix nanos>_<id>"
	indexBucket       = "predictions_ids" // Entry id to primary key

	// FileName is the database file created inside the data directory.
	FileName = "learnstyle-journal.db"
)

// ErrNotFound is returned when no entry carries the requested id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one recorded predict action.
type Entry struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source,omitempty"`
	Features      features.Vector `json:"features"`
	Label         string          `json:"label,omitempty"`
	RawPrediction int             `json:"raw_prediction"`
	Error         string          `json:"error,omitempty"`
	Votes         votes.Histogram `json:"votes,omitempty"`
	VoteError     string          `json:"vote_error,omitempty"`
	Latency       time.Duration   `json:"latency_ns"`
}

// Succeeded reports whether the primary prediction returned a label.
func (e Entry) Succeeded() bool {
	return e.Error == "" && e.Label != ""
}

// Store records prediction outcomes in BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the journal inside dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, FileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(indexBucket)); err != nil {
			return fmt.Errorf("create index bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append stores e, filling in ID and Timestamp when they are empty, and returns
// the stored entry.
func (s *Store) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		key := entryKey(e)
		if err := tx.Bucket([]byte(predictionsBucket)).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket([]byte(indexBucket)).Put([]byte(e.ID), key)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// AttachVotes records the vote follow-up outcome on an existing entry.
func (s *Store) AttachVotes(id string, h votes.Histogram, voteErr string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(indexBucket)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("attach votes to %s: %w", id, ErrNotFound)
		}
		b := tx.Bucket([]byte(predictionsBucket))

		var e Entry
		if err := json.Unmarshal(b.Get(key), &e); err != nil {
			return fmt.Errorf("unmarshal entry %s: %w", id, err)
		}
		e.Votes = h
		e.VoteError = voteErr

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return b.Put(key, data)
	})
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(indexBucket)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("get %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(tx.Bucket([]byte(predictionsBucket)).Get(key), &e)
	})
	return e, err
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (s *Store) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(entries) >= n {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue // Skip malformed records
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Range returns the entries recorded between start and end inclusive, oldest first.
func (s *Store) Range(start, end time.Time) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		startKey := timeKey(start)
		endKey := timeKey(end.Add(time.Nanosecond))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d_%s", e.Timestamp.UnixNano(), e.ID))
}

func timeKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", t.UnixNano()))
}
