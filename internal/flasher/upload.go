package flasher

import (
	"fmt"
)

// Upload writes image at base in address order. The session must be erased.
// The first rejected chunk aborts the upload with a *ChunkError; chunks are
// never retried since a partially written page needs a fresh erase.
func (s *Session) Upload(image []byte, base uint32) error {
	if err := s.expect("upload", StateErased); err != nil {
		return err
	}
	if len(image) == 0 {
		return fmt.Errorf("upload: %w", ErrEmptyImage)
	}
	if uint64(base)+uint64(len(image)) > 1<<32 {
		return fmt.Errorf("upload: %w: %d bytes at 0x%08X exceed the address space",
			ErrInvalidPayload, len(image), base)
	}

	plan := BuildPlan(image, base, s.cfg.BlockSize)
	total := len(image)
	written := 0

	pkgLog.Infof("uploading %d bytes to 0x%08X in %d chunks", total, base, len(plan))
	s.state = StateProgramming

	for _, chunk := range plan {
		if err := s.writeBlock(chunk.Address, chunk.Data); err != nil {
			return s.fail("upload", &ChunkError{Address: chunk.Address, Cause: err})
		}

		written += len(chunk.Data)
		pkgLog.Debugf("written %d bytes at 0x%08X", len(chunk.Data), chunk.Address)
		s.emit(Event{
			Kind:         EventChunkWritten,
			Address:      chunk.Address,
			Length:       len(chunk.Data),
			BytesWritten: written,
			TotalBytes:   total,
		})
	}

	s.state = StateComplete
	s.emit(Event{Kind: EventUploadComplete, TotalBytes: total})
	return nil
}
