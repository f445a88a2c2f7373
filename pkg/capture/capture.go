// Package capture persists validated messages for later replay and analysis.
// Entries are keyed by ksuid, so iteration order is capture order, and each
// value is a small envelope written with the wire primitives:
//
//	[messageId : varint][payload bytes]
package capture

import (
	"math"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"github.com/ndegiovanni/hywire/pkg/wire"
)

// Entry is one captured message.
type Entry struct {
	ID        ksuid.KSUID
	MessageID uint32
	Payload   []byte
}

// Store is a pebble-backed capture log.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a capture store at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Append stores one message payload and returns its capture id.
func (s *Store) Append(messageID uint32, payload []byte) (ksuid.KSUID, error) {
	id := ksuid.New()
	buf := wire.NewBuffer(wire.UvarintSize(uint64(messageID)) + len(payload))
	if err := buf.WriteUvarint(uint64(messageID)); err != nil {
		return ksuid.Nil, err
	}
	if err := buf.WriteBytes(payload); err != nil {
		return ksuid.Nil, err
	}
	if err := s.db.Set(id.Bytes(), buf.Bytes(), pebble.NoSync); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Get returns the entry stored under id.
func (s *Store) Get(id ksuid.KSUID) (*Entry, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeEntry(id, data)
}

// Replay calls fn for every captured entry in capture order. Iteration stops
// at the first error fn returns.
func (s *Store) Replay(fn func(*Entry) error) error {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return errors.Wrap(err, "capture key")
		}
		entry, err := decodeEntry(id, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodeEntry(id ksuid.KSUID, data []byte) (*Entry, error) {
	buf := wire.Wrap(data)
	msgID, err := buf.ReadUvarint()
	if err != nil {
		return nil, errors.Wrap(err, "capture envelope")
	}
	if msgID > math.MaxUint32 {
		return nil, errors.Wrapf(wire.ErrMalformed, "capture envelope message id %d out of range", msgID)
	}
	payload, err := buf.ReadBytes(buf.Remaining())
	if err != nil {
		return nil, errors.Wrap(err, "capture envelope")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &Entry{ID: id, MessageID: uint32(msgID), Payload: cp}, nil
}
