package session

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const tokenKey = "session:token"

// BadgerStore keeps the token in a local BadgerDB so it survives process
// restarts. Writes are last-write-wins, which matches the one-token model.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the store at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewInMemoryStore returns a BadgerStore that never touches disk. Used by
// tests and by one-shot commands that do not need a durable session.
func NewInMemoryStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory session store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", ErrNoSession
	} else if err != nil {
		return "", err
	}
	return token, nil
}

func (s *BadgerStore) SetToken(ctx context.Context, token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tokenKey), []byte(token))
	})
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(tokenKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
