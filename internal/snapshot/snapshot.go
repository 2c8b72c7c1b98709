// Package snapshot is the device-local key-value store behind autosave.
//
// It keeps exactly one "currently editing" record plus a side table of
// remotely-backed diagrams that were modified locally and not yet confirmed
// by the server. Small auxiliary values (the cached session) share the same
// database through Get, Set and Delete.
package snapshot

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
)

const (
	currentKey     = "currentEditingDiagram"
	modifiedPrefix = "dbDiagrams:"
)

// Source records why a snapshot exists.
type Source string

const (
	// SourceUnsaved marks a document that has never been stored remotely.
	SourceUnsaved Source = "unsaved"
	// SourceModified marks a remotely-backed document with local edits.
	SourceModified Source = "db_modified"
	// SourceRemote marks a copy that matched the server when it was written.
	SourceRemote Source = "db"
)

// ErrNotFound is returned when a key holds no record.
var ErrNotFound = domainerrors.NotFound("snapshot not found")

// Record is a Diagram Record as cached on the device.
type Record struct {
	// ID is the remote identifier. Zero means the diagram was never saved remotely.
	ID                 int64     `json:"id,omitzero"`
	Titulo             string    `json:"titulo"`
	DatosJSON          string    `json:"datos_json"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	UltimaModificacion time.Time `json:"ultima_modificacion,omitzero"`
	UsuarioID          string    `json:"usuario_id,omitempty"`
	Source             Source    `json:"source"`
	// LastModified is the local write time in unix milliseconds.
	LastModified int64 `json:"lastModified"`
}

// RemoteBacked reports whether the record has a remote identity.
func (r *Record) RemoteBacked() bool {
	return r.ID != 0
}

// Options configures Open.
type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// MaxRecordBytes caps the encoded size of a single value. Zero disables the cap.
	MaxRecordBytes int64
	Logger         *slog.Logger
}

// Store wraps a Badger database holding device-local state.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	maxBytes int64
}

// Open opens (or creates) the device store.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}

	logger.Debug("snapshot store opened", "path", opts.Path, "in_memory", opts.InMemory)
	return &Store{db: db, logger: logger, maxBytes: opts.MaxRecordBytes}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Current returns the currently editing record, or ErrNotFound.
func (s *Store) Current(ctx context.Context) (*Record, error) {
	var rec Record
	if err := s.Get(ctx, currentKey, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveCurrent overwrites the currently editing record and stamps LastModified.
// A write that exceeds the quota fails with a STORAGE_QUOTA error and leaves
// the previous record in place.
func (s *Store) SaveCurrent(ctx context.Context, rec *Record) error {
	stamped := *rec
	stamped.LastModified = time.Now().UnixMilli()
	if err := s.Set(ctx, currentKey, &stamped); err != nil {
		return err
	}
	rec.LastModified = stamped.LastModified
	return nil
}

// ClearCurrent removes the currently editing record. Clearing an empty store is not an error.
func (s *Store) ClearCurrent(ctx context.Context) error {
	return s.Delete(ctx, currentKey)
}

// PutModified records a locally-modified copy of a remotely-backed diagram.
func (s *Store) PutModified(ctx context.Context, rec *Record) error {
	if !rec.RemoteBacked() {
		return domainerrors.Validation("only remotely-backed diagrams belong in the modified table")
	}
	stamped := *rec
	stamped.Source = SourceModified
	stamped.LastModified = time.Now().UnixMilli()
	return s.Set(ctx, modifiedKey(rec.ID), &stamped)
}

// Modified returns the locally-modified copy of diagram id, or ErrNotFound.
func (s *Store) Modified(ctx context.Context, id int64) (*Record, error) {
	var rec Record
	if err := s.Get(ctx, modifiedKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteModified drops diagram id from the modified table.
func (s *Store) DeleteModified(ctx context.Context, id int64) error {
	return s.Delete(ctx, modifiedKey(id))
}

// ListModified returns every locally-modified record, ordered by key.
func (s *Store) ListModified(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []*Record{}
	prefix := []byte(modifiedPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				s.logger.Warn("skipping corrupt modified record",
					"key", string(it.Item().Key()),
					"error", err,
				)
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list modified: %w", err)
	}
	return records, nil
}

// Get decodes the value stored under key into dest.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return nil
}

// Set encodes value and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return domainerrors.StorageQuota("local storage quota exceeded").
			WithDetails(map[string]any{"key": key, "bytes": len(data), "limit": s.maxBytes})
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if isQuotaError(err) {
		return domainerrors.Wrap(err, domainerrors.CodeStorageQuota, "local storage quota exceeded")
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func modifiedKey(id int64) string {
	return modifiedPrefix + strconv.FormatInt(id, 10)
}

func isQuotaError(err error) bool {
	return errors.Is(err, badger.ErrTxnTooBig) ||
		errors.Is(err, syscall.ENOSPC)
}
