// Package image loads firmware images for upload.
package image

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// Padding fills gaps between Intel HEX segments. It matches erased flash.
const Padding = 0xFF

// MaxSpan is the largest address range a HEX file may cover. Segments
// further apart (e.g. flash plus option bytes) would flatten into a huge
// padded buffer.
const MaxSpan = 2 << 20

// Image is a contiguous block of bytes to be written at Address.
type Image struct {
	Data []byte

	// Address is the load address carried by the file. It is only
	// meaningful when HasAddress is set; raw binaries carry none.
	Address    uint32
	HasAddress bool
}

// Load reads a raw binary or, for .hex/.ihex files, an Intel HEX image.
func Load(path string) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open hex file: %w", err)
		}
		defer f.Close()
		return ParseHex(f)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("image file %s is empty", path)
		}
		return &Image{Data: data}, nil
	}
}

// ParseHex parses Intel HEX data and flattens its segments into one image
// spanning the lowest to the highest address, padding gaps with Padding.
func ParseHex(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse hex file: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("hex file contains no data")
	}

	start := segments[0].Address
	end := uint64(start)
	for _, s := range segments {
		if s.Address < start {
			start = s.Address
		}
		if e := uint64(s.Address) + uint64(len(s.Data)); e > end {
			end = e
		}
	}

	if span := end - uint64(start); span > MaxSpan {
		return nil, fmt.Errorf("hex file spans 0x%08X-0x%08X (%d bytes), more than %d bytes",
			start, end-1, span, MaxSpan)
	}

	size := uint32(end - uint64(start))
	return &Image{
		Data:       mem.ToBinary(start, size, Padding),
		Address:    start,
		HasAddress: true,
	}, nil
}
