package channeldb

import (
	"fmt"

	"go.etcd.io/bbolt"
)

const dbFilePermission = 0600

// channelBucket is the single top-level bucket; each channel is keyed by
// caller-supplied channel ID (the anchor outpoint, serialized, is a natural
// choice) and its value is a ChannelSnapshot encoded by ToBytes.
var channelBucket = []byte("channels")

// DB is the on-disk store for this node's channels.
type DB struct {
	*bbolt.DB
}

// Open opens (creating if necessary) the bbolt database at path and ensures
// its top-level bucket exists.
func Open(path string) (*DB, error) {
	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(channelBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	return &DB{DB: bdb}, nil
}

// PutChannel persists snap under chanID, overwriting any previous snapshot
// for the same channel.
func (d *DB) PutChannel(chanID []byte, snap *ChannelSnapshot) error {
	raw, err := snap.ToBytes()
	if err != nil {
		return fmt.Errorf("channeldb: encoding snapshot: %w", err)
	}

	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(channelBucket).Put(chanID, raw)
	})
}

// FetchChannel loads the snapshot stored under chanID. It returns
// ErrChannelNotFound if no snapshot is stored there.
func (d *DB) FetchChannel(chanID []byte) (*ChannelSnapshot, error) {
	var snap *ChannelSnapshot

	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(channelBucket).Get(chanID)
		if raw == nil {
			return ErrChannelNotFound
		}

		s, err := SnapshotFromBytes(raw)
		if err != nil {
			return fmt.Errorf("channeldb: decoding snapshot: %w", err)
		}
		snap = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// DeleteChannel removes the snapshot stored under chanID. It is a no-op if
// none is stored there.
func (d *DB) DeleteChannel(chanID []byte) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(channelBucket).Delete(chanID)
	})
}

// ForEachChannel calls fn once per stored channel, in key order, stopping
// and returning fn's error if it returns one.
func (d *DB) ForEachChannel(fn func(chanID []byte, snap *ChannelSnapshot) error) error {
	return d.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(channelBucket).ForEach(func(k, v []byte) error {
			snap, err := SnapshotFromBytes(v)
			if err != nil {
				return fmt.Errorf("channeldb: decoding snapshot for %x: %w", k, err)
			}
			return fn(k, snap)
		})
	})
}
