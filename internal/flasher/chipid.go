package flasher

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// ChipID is the identifier returned by GET ID.
type ChipID []byte

// ParseChipID parses a hex identifier such as "0410", "0x410" or "04 10".
func ParseChipID(s string) (ChipID, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return nil, fmt.Errorf("invalid chip id %q", s)
	}
	return ChipID(b), nil
}

// PID returns the product ID carried in the first two bytes.
func (c ChipID) PID() uint16 {
	switch len(c) {
	case 0:
		return 0
	case 1:
		return uint16(c[0])
	default:
		return uint16(c[0])<<8 | uint16(c[1])
	}
}

// Name returns the device family for the product ID.
func (c ChipID) Name() string {
	return protocol.ChipName(c.PID())
}

// Equal reports whether both identifiers hold the same bytes.
func (c ChipID) Equal(other ChipID) bool {
	return string(c) == string(other)
}

func (c ChipID) String() string {
	return fmt.Sprintf("%X", []byte(c))
}

func (c ChipID) clone() ChipID {
	if c == nil {
		return nil
	}
	return append(ChipID(nil), c...)
}
