// Package spool persists recorded answers locally until the server confirms
// them, so an answer survives a crash between recording and upload.
package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/screenbooth/screenbooth/internal/types"
)

// ErrNotFound indicates no spooled answer exists for the key.
var ErrNotFound = errors.New("spool: answer not found")

// Record is one spooled answer.
type Record struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	QuestionID      string    `json:"question_id"`
	MimeType        string    `json:"mime_type"`
	DurationSeconds float64   `json:"duration_seconds"`
	TranscriptHint  string    `json:"transcript_hint"`
	Blob            []byte    `json:"blob"`
	SavedAt         time.Time `json:"saved_at"`
}

// CaptureResult rebuilds the upload payload from a spooled record.
func (r *Record) CaptureResult() types.CaptureResult {
	return types.CaptureResult{
		QuestionID:     r.QuestionID,
		Blob:           r.Blob,
		MimeType:       r.MimeType,
		Duration:       time.Duration(r.DurationSeconds * float64(time.Second)),
		TranscriptHint: r.TranscriptHint,
	}
}

// Store is a badger-backed answer spool.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a spool at the given directory.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral spool, used in tests.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory spool: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put spools one recorded answer, replacing any earlier record for the same
// question. Re-recording after a failed upload overwrites the stale blob.
func (s *Store) Put(sessionID string, res types.CaptureResult) (*Record, error) {
	rec := &Record{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		QuestionID:      res.QuestionID,
		MimeType:        res.MimeType,
		DurationSeconds: res.Duration.Seconds(),
		TranscriptHint:  res.TranscriptHint,
		Blob:            res.Blob,
		SavedAt:         time.Now().UTC(),
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(answerKey(sessionID, res.QuestionID), val)
	})
	if err != nil {
		return nil, fmt.Errorf("spool answer: %w", err)
	}
	return rec, nil
}

// Get returns the spooled answer for one question, or ErrNotFound.
func (s *Store) Get(sessionID, questionID string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(answerKey(sessionID, questionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read spooled answer: %w", err)
	}
	return &rec, nil
}

// Delete removes one spooled answer. Deleting a missing answer is a no-op.
func (s *Store) Delete(sessionID, questionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(answerKey(sessionID, questionID))
	})
	if err != nil {
		return fmt.Errorf("delete spooled answer: %w", err)
	}
	return nil
}

// Pending lists all spooled answers for a session in key order.
func (s *Store) Pending(sessionID string) ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("answer/" + sessionID + "/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list spooled answers: %w", err)
	}
	return records, nil
}

func answerKey(sessionID, questionID string) []byte {
	return []byte("answer/" + sessionID + "/" + questionID)
}
