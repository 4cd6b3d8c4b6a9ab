package flasher

import (
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// Chunk is one WRITE MEMORY unit of an upload.
type Chunk struct {
	Address uint32
	Data    []byte
}

// BuildPlan slices image into contiguous chunks of at most blockSize bytes
// starting at base. Chunk data aliases image. A blockSize outside 1-256 is
// treated as 256.
func BuildPlan(image []byte, base uint32, blockSize int) []Chunk {
	if blockSize < protocol.MinBlockSize || blockSize > protocol.MaxBlockSize {
		blockSize = protocol.MaxBlockSize
	}

	plan := make([]Chunk, 0, (len(image)+blockSize-1)/blockSize)
	for offset := 0; offset < len(image); offset += blockSize {
		end := offset + blockSize
		if end > len(image) {
			end = len(image)
		}
		plan = append(plan, Chunk{
			Address: base + uint32(offset),
			Data:    image[offset:end],
		})
	}
	return plan
}
