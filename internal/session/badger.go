// Quillpress - Content Publishing Platform API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quillpress

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// badgerKeyPrefix namespaces session values: qps:<session id>:<key>.
const badgerKeyPrefix = "qps:"

// badgerGCDiscardRatio is passed to RunValueLogGC.
const badgerGCDiscardRatio = 0.5

// BadgerStore persists sessions in BadgerDB. Expiry is delegated to Badger
// entry TTLs; every Set rewrites all keys of the session with one shared
// expiry so they lapse together.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	ownsDB bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger session store at %s: %w", path, err)
	}
	return &BadgerStore{db: db, ttl: ttl, ownsDB: true}, nil
}

// NewBadgerStore wraps an already open database. Close leaves db open.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

func badgerKey(sessionID, key string) []byte {
	return []byte(badgerKeyPrefix + sessionID + ":" + key)
}

func badgerSessionPrefix(sessionID string) []byte {
	return []byte(badgerKeyPrefix + sessionID + ":")
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(sessionID, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session value: %w", err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	target := badgerKey(sessionID, key)
	expiresAt := uint64(time.Now().Add(s.ttl).Unix())

	return s.db.Update(func(txn *badger.Txn) error {
		siblings, err := sessionEntries(txn, badgerSessionPrefix(sessionID), target)
		if err != nil {
			return err
		}
		siblings = append(siblings, badger.NewEntry(target, value))
		for _, e := range siblings {
			e.ExpiresAt = expiresAt
			if err := txn.SetEntry(e); err != nil {
				return fmt.Errorf("set session value: %w", err)
			}
		}
		return nil
	})
}

// sessionEntries copies every live entry under prefix except skip.
func sessionEntries(txn *badger.Txn, prefix, skip []byte) ([]*badger.Entry, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*badger.Entry
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if bytes.Equal(item.Key(), skip) {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read session value: %w", err)
		}
		out = append(out, badger.NewEntry(item.KeyCopy(nil), v))
	}
	return out, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, sessionID, key string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(badgerKey(sessionID, key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete session value: %w", err)
		}
		return nil
	})
}

// Destroy implements Store.
func (s *BadgerStore) Destroy(_ context.Context, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}

	prefix := badgerSessionPrefix(sessionID)
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list session keys: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("destroy session: %w", err)
			}
		}
		return nil
	})
}

// CollectGarbage runs value-log GC until Badger reports nothing to rewrite.
// Expired entries are already invisible to readers.
func (s *BadgerStore) CollectGarbage(ctx context.Context) (int, error) {
	runs := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(badgerGCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return runs, nil
		}
		if err != nil {
			return runs, fmt.Errorf("badger value log gc: %w", err)
		}
		runs++
	}
	return runs, ctx.Err()
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
