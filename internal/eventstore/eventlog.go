// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package eventstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/models"
)

// ErrLogClosed is returned by operations on a closed log.
var ErrLogClosed = errors.New("event log is closed")

// Log is the durable event log. Append persists one event; Replay streams
// every persisted event in append order.
type Log interface {
	Append(ctx context.Context, event *models.Event) error
	Replay(ctx context.Context, fn func(models.Event) error) error
	Close() error
}

// keyPrefix namespaces event entries in the Badger keyspace.
const keyPrefix = "event:"

// BadgerLog implements Log on BadgerDB. Keys encode the event timestamp
// so iteration order matches event time order.
type BadgerLog struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// OpenLog opens (or creates) a BadgerLog at the given path.
func OpenLog(path string, syncWrites bool) (*BadgerLog, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = syncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", path).
		Bool("sync_writes", syncWrites).
		Msg("Event log opened")

	return &BadgerLog{db: db}, nil
}

// logKey builds the storage key for an event. Zero-padded millis keep
// lexicographic order equal to time order.
func logKey(event *models.Event) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", keyPrefix, event.Timestamp, event.EventID))
}

// Append persists one event.
func (l *BadgerLog) Append(_ context.Context, event *models.Event) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrLogClosed
	}
	l.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(event), payload)
	})
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Replay streams every persisted event in timestamp order. Iteration stops
// on the first error from fn or a canceled context.
func (l *BadgerLog) Replay(ctx context.Context, fn func(models.Event) error) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrLogClosed
	}
	l.mu.RUnlock()

	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var event models.Event
				if err := json.Unmarshal(val, &event); err != nil {
					return fmt.Errorf("unmarshal event: %w", err)
				}
				return fn(event)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Close shuts down the log. Further operations return ErrLogClosed.
func (l *BadgerLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// NopLog is a Log that persists nothing. Used when the durable log is
// disabled in config.
type NopLog struct{}

func (NopLog) Append(context.Context, *models.Event) error            { return nil }
func (NopLog) Replay(context.Context, func(models.Event) error) error { return nil }
func (NopLog) Close() error                                           { return nil }
