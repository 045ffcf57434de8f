// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bolt stores entity records in an embedded bbolt file, for
// single-process deployments that do not want a database server.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"

	"github.com/samber/oops"
	bbolt "go.etcd.io/bbolt"

	"github.com/holomush/muckdb/internal/storage"
)

var bucketEntities = []byte("entities")

// row is the gob-encoded value stored per id. HasName keeps an empty name
// distinct from a missing one, since gob drops zero values.
type row struct {
	Kind    string
	HasName bool
	Name    string
	Encoded string
}

// Backend implements storage.Backend and storage.Scanner on a bbolt file.
type Backend struct {
	db *bbolt.DB
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Scanner = (*Backend)(nil)
)

// Open opens or creates the database file at path.
func Open(path string) (*Backend, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, oops.Code(storage.CodeBackendIO).With("path", path).Wrapf(err, "open bolt file")
	}
	return &Backend{db: db}, nil
}

// Close releases the file lock.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.db.Path()
}

// idToKey converts an id to an 8-byte big-endian key, offset so negative
// ids sort before non-negative ones.
func idToKey(id int32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(id)+1<<32))
	return buf
}

func keyToID(k []byte) int32 {
	return int32(int64(binary.BigEndian.Uint64(k)) - 1<<32)
}

func encodeRow(rec *storage.Record) ([]byte, error) {
	r := row{Kind: rec.Kind, Encoded: rec.Encoded}
	if rec.Name != nil {
		r.HasName = true
		r.Name = *rec.Name
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRow(id int32, data []byte) (*storage.Record, error) {
	var r row
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, err
	}
	rec := &storage.Record{ID: id, Kind: r.Kind, Encoded: r.Encoded}
	if r.HasName {
		name := r.Name
		rec.Name = &name
	}
	return rec, nil
}

// Initialize creates the entities bucket if needed.
func (b *Backend) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("initialize", -1, err)
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntities)
		return err
	})
	if err != nil {
		return storage.IOError("initialize", -1, err)
	}
	return nil
}

func (b *Backend) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bkt := tx.Bucket(bucketEntities)
	if bkt == nil {
		return nil, oops.Code(storage.CodeSchemaMissing).Errorf("bucket %q missing; call Initialize", bucketEntities)
	}
	return bkt, nil
}

// Load implements storage.Backend.
func (b *Backend) Load(ctx context.Context, id int32) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError("load", id, err)
	}
	var rec *storage.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt, err := b.bucket(tx)
		if err != nil {
			return err
		}
		data := bkt.Get(idToKey(id))
		if data == nil {
			return storage.NotFound(id)
		}
		rec, err = decodeRow(id, data)
		if err != nil {
			return storage.IOError("decode row", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Save implements storage.Backend.
func (b *Backend) Save(ctx context.Context, rec *storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("save", rec.ID, err)
	}
	data, err := encodeRow(rec)
	if err != nil {
		return storage.IOError("encode row", rec.ID, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := b.bucket(tx)
		if err != nil {
			return err
		}
		if err := bkt.Put(idToKey(rec.ID), data); err != nil {
			return storage.IOError("save", rec.ID, err)
		}
		return nil
	})
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, id int32) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("delete", id, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := b.bucket(tx)
		if err != nil {
			return err
		}
		key := idToKey(id)
		if bkt.Get(key) == nil {
			return storage.NotFound(id)
		}
		if err := bkt.Delete(key); err != nil {
			return storage.IOError("delete", id, err)
		}
		return nil
	})
}

// MaxID implements storage.Backend using the last key in the bucket.
func (b *Backend) MaxID(ctx context.Context) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.IOError("max id", -1, err)
	}
	maxID := int32(-1)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt, err := b.bucket(tx)
		if err != nil {
			return err
		}
		if k, _ := bkt.Cursor().Last(); k != nil {
			maxID = keyToID(k)
		}
		return nil
	})
	return maxID, err
}

// Scan implements storage.Scanner inside a single read transaction.
func (b *Backend) Scan(ctx context.Context, fn func(*storage.Record) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bkt, err := b.bucket(tx)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, v []byte) error {
			id := keyToID(k)
			if err := ctx.Err(); err != nil {
				return storage.IOError("scan", id, err)
			}
			rec, err := decodeRow(id, v)
			if err != nil {
				return storage.IOError("decode row", id, err)
			}
			return fn(rec)
		})
	})
}
