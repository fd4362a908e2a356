// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var (
	attemptPrefix = []byte("att:")
	sequenceKey   = []byte("seq:attempts")
)

// BadgerStore keeps attempts as JSON under "att:<big-endian seq>" so key
// order is insertion order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("journal: open badger: %w", err)
	}
	seq, err := db.GetSequence(sequenceKey, 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func attemptKey(n uint64) []byte {
	key := make([]byte, len(attemptPrefix)+8)
	copy(key, attemptPrefix)
	binary.BigEndian.PutUint64(key[len(attemptPrefix):], n)
	return key
}

func (s *BadgerStore) Record(_ context.Context, a Attempt) error {
	a = prepare(a)
	buf, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("journal: encode attempt: %w", err)
	}
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("journal: next sequence: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(attemptKey(n), buf)
	})
}

func (s *BadgerStore) List(_ context.Context, limit int) ([]Attempt, error) {
	var out []Attempt
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = attemptPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), attemptPrefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.ValidForPrefix(attemptPrefix); it.Next() {
			var a Attempt
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: list attempts: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	relErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return relErr
}
