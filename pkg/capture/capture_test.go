package capture

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndegiovanni/hywire/pkg/codec"
	"github.com/ndegiovanni/hywire/pkg/protocol"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func encodeDisconnect(t *testing.T, reason uint64, detail string) []byte {
	t.Helper()
	reg := protocol.NewRegistry()
	c, ok := reg.Lookup(protocol.IDDisconnect)
	require.True(t, ok)
	b := codec.NewBuilder(c.Schema())
	require.NoError(t, b.SetUint("reason", reason))
	require.NoError(t, b.SetString("detail", detail))
	rec, err := b.Build()
	require.NoError(t, err)
	size, err := c.Size(rec)
	require.NoError(t, err)
	buf := wire.NewBuffer(size)
	require.NoError(t, c.Encode(rec, buf))
	return buf.Bytes()
}

func TestStore_AppendGet(t *testing.T) {
	s := openStore(t)

	payload := encodeDisconnect(t, 1, "first")
	id, err := s.Append(protocol.IDDisconnect, payload)
	require.NoError(t, err)

	entry, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, protocol.IDDisconnect, entry.MessageID)
	assert.Equal(t, payload, entry.Payload)
}

func TestStore_ReplayInCaptureOrder(t *testing.T) {
	s := openStore(t)

	details := []string{"one", "two", "three"}
	for _, d := range details {
		_, err := s.Append(protocol.IDDisconnect, encodeDisconnect(t, 1, d))
		require.NoError(t, err)
	}

	reg := protocol.NewRegistry()
	var got []string
	err := s.Replay(func(e *Entry) error {
		rec, err := reg.Decode(wire.Wrap(e.Payload))
		if err != nil {
			return err
		}
		d, _ := rec.String("detail")
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, details, got)
}

func TestStore_ReplayStopsOnCallbackError(t *testing.T) {
	s := openStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.Append(protocol.IDDisconnect, encodeDisconnect(t, 1, "x"))
		require.NoError(t, err)
	}

	seen := 0
	err := s.Replay(func(e *Entry) error {
		seen++
		if seen == 2 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, seen)
}

func TestStore_PayloadIsCopied(t *testing.T) {
	s := openStore(t)

	payload := encodeDisconnect(t, 1, "immutable")
	id, err := s.Append(protocol.IDDisconnect, payload)
	require.NoError(t, err)

	entry, err := s.Get(id)
	require.NoError(t, err)
	entry.Payload[0] ^= 0xFF

	again, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, payload, again.Payload)
}

func TestDecodeEntry_RejectsOversizedMessageID(t *testing.T) {
	// An envelope whose varint id exceeds 32 bits cannot belong to any
	// schema; it must surface as malformed, not wrap around silently.
	buf := wire.NewBuffer(wire.UvarintSize(1<<40) + 1)
	require.NoError(t, buf.WriteUvarint(1<<40))
	require.NoError(t, buf.WriteBytes([]byte{0x00}))

	entry, err := decodeEntry(ksuid.New(), buf.Bytes())
	assert.Nil(t, entry)
	assert.True(t, wire.IsMalformed(err))
}

func TestStore_EmptyPayload(t *testing.T) {
	s := openStore(t)

	id, err := s.Append(protocol.IDUIPageClose, nil)
	require.NoError(t, err)
	entry, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, protocol.IDUIPageClose, entry.MessageID)
	assert.Empty(t, entry.Payload)
}
