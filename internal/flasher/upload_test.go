package flasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ackAll returns n single ACK replies.
func ackAll(n int) [][]byte {
	replies := make([][]byte, n)
	for i := range replies {
		replies[i] = []byte{ack}
	}
	return replies
}

func TestUpload_Success(t *testing.T) {
	t.Parallel()
	port := newFakePort(ackAll(9)...)
	rec := &eventRecorder{}
	s := erasedSession(port, WithSink(rec.sink))

	image := make([]byte, 600)
	require.NoError(t, s.Upload(image, 0x08000000))

	assert.Equal(t, StateComplete, s.State())
	assert.Len(t, port.writes, 9)
	assert.Equal(t, []byte{0x08, 0x00, 0x02, 0x00, 0x0A}, port.writes[7])
	assert.Equal(t, byte(87), port.writes[8][0])

	assert.Equal(t, []EventKind{EventChunkWritten, EventChunkWritten, EventChunkWritten, EventUploadComplete}, rec.kinds())
	assert.Equal(t, Event{Kind: EventChunkWritten, Address: 0x08000100, Length: 256, BytesWritten: 512, TotalBytes: 600}, rec.events[1])
	assert.Equal(t, 600, rec.events[2].BytesWritten)
	assert.Equal(t, 600, rec.events[3].TotalBytes)
}

func TestUpload_AbortsOnFirstFailure(t *testing.T) {
	t.Parallel()
	// First chunk succeeds, second chunk is rejected at the data stage.
	replies := append(ackAll(5), []byte{nack})
	replies = append(replies, ackAll(3)...)
	port := newFakePort(replies...)
	rec := &eventRecorder{}
	s := erasedSession(port, WithSink(rec.sink))

	err := s.Upload(make([]byte, 600), 0x08000000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChunkFailed)
	assert.ErrorIs(t, err, ErrNack)

	var ce *ChunkError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, uint32(0x08000100), ce.Address)
	assert.Equal(t, "upload at 0x08000100 (data stage)", FailedStage(err))

	assert.Len(t, port.writes, 6)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, []EventKind{EventChunkWritten, EventFailed}, rec.kinds())
	assert.Equal(t, "upload", rec.events[1].Stage)
}

func TestUpload_RefusedAfterComplete(t *testing.T) {
	t.Parallel()
	s := erasedSession(newFakePort(ackAll(3)...))
	require.NoError(t, s.Upload([]byte{0x01}, 0x08000000))

	err := s.Upload([]byte{0x01}, 0x08000000)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.GetChipID()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestUpload_RequiresErase(t *testing.T) {
	t.Parallel()
	port := newFakePort()
	s := syncedSession(port)

	err := s.Upload([]byte{0x01}, 0x08000000)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, port.writes)
}

func TestUpload_InvalidImage(t *testing.T) {
	t.Parallel()
	port := newFakePort()
	s := erasedSession(port)

	assert.ErrorIs(t, s.Upload(nil, 0x08000000), ErrEmptyImage)
	assert.ErrorIs(t, s.Upload(make([]byte, 64), 0xFFFFFFF0), ErrInvalidPayload)
	assert.Empty(t, port.writes)
	assert.Equal(t, StateErased, s.State())
}

func TestUpload_BlockSize(t *testing.T) {
	t.Parallel()
	port := newFakePort(ackAll(12)...)
	s := erasedSession(port, WithBlockSize(64))

	require.NoError(t, s.Upload(make([]byte, 256), 0x08000000))
	assert.Len(t, port.writes, 12)
	assert.Equal(t, byte(63), port.writes[2][0])
}

func TestFlash_FullSequence(t *testing.T) {
	t.Parallel()
	replies := [][]byte{
		{ack, 0x01, 0x04, 0x10, ack}, // GET ID
		{ack}, {ack},                  // EXTENDED ERASE
	}
	replies = append(replies, ackAll(6)...)
	port := newFakePort(replies...)
	rec := &eventRecorder{}
	s := syncedSession(port, WithSink(rec.sink), WithExpectedChipID(ChipID{0x04, 0x10}))

	require.NoError(t, s.Flash(make([]byte, 300), 0x08000000))

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, []EventKind{
		EventChipIDReceived,
		EventEraseStarted,
		EventEraseComplete,
		EventChunkWritten,
		EventChunkWritten,
		EventUploadComplete,
	}, rec.kinds())
}

func TestFlash_SkipsChipID(t *testing.T) {
	t.Parallel()
	port := newFakePort(ackAll(5)...)
	s := syncedSession(port, WithQueryChipID(false))

	require.NoError(t, s.Flash([]byte{0xAB}, 0x08000000))
	assert.Equal(t, []byte{0x44, 0xBB}, port.writes[0])
}

func TestFlash_StopsOnEraseFailure(t *testing.T) {
	t.Parallel()
	port := newFakePort([]byte{ack}, []byte{nack})
	s := syncedSession(port, WithQueryChipID(false))

	err := s.Flash([]byte{0xAB}, 0x08000000)
	assert.ErrorIs(t, err, ErrNack)
	assert.Equal(t, "extended erase (selector stage)", FailedStage(err))
	assert.Len(t, port.writes, 2)
	assert.Equal(t, StateFailed, s.State())
}

func TestFlash_StopsOnChipMismatch(t *testing.T) {
	t.Parallel()
	port := newFakePort([]byte{ack, 0x01, 0x04, 0x13, ack})
	s := syncedSession(port, WithExpectedChipID(ChipID{0x04, 0x10}))

	err := s.Flash([]byte{0xAB}, 0x08000000)
	assert.ErrorIs(t, err, ErrChipMismatch)
	assert.Equal(t, "chip id check", FailedStage(err))
	assert.Len(t, port.writes, 1)
}
