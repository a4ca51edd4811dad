// Package history persists the chat timeline in a local BadgerDB store under
// a fixed key, mirroring how the web client kept its history in browser local
// storage. Audio buffers are not serializable and are dropped on save.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/domain/repositories"
)

// historyKey is the single key the whole timeline lives under.
const historyKey = "chat_history"

// Options configures the store.
type Options struct {
	// Dir is the directory for the database files. Required unless InMemory.
	Dir string
	// InMemory skips disk persistence; used in tests.
	InMemory bool
}

// Store is a BadgerDB-backed history store.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ repositories.HistoryStore = (*Store)(nil)

// NewStore opens the database.
func NewStore(opts Options, logger *zap.Logger) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Save writes the timeline, replacing whatever was stored before.
func (s *Store) Save(_ context.Context, turns []entities.Turn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(historyKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Load returns the stored timeline, or nothing when no history exists yet.
func (s *Store) Load(_ context.Context) ([]entities.Turn, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(historyKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var turns []entities.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		// A corrupt record should not brick startup; start fresh.
		s.logger.Warn("Discarding unreadable chat history", zap.Error(err))
		return nil, nil
	}
	return turns, nil
}

// Clear removes the stored timeline.
func (s *Store) Clear(_ context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(historyKey))
	})
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
