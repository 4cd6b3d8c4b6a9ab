package protocol

import (
	"encoding/binary"
	"fmt"
)

// CommandChecksum returns the complement byte sent after a command opcode.
func CommandChecksum(op byte) byte {
	return op ^ 0xFF
}

// BlockChecksum XORs the length byte with every payload byte.
func BlockChecksum(lengthByte byte, payload []byte) byte {
	checksum := lengthByte
	for _, b := range payload {
		checksum ^= b
	}
	return checksum
}

// AddressChecksum XORs the four big-endian bytes of addr.
func AddressChecksum(addr uint32) byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], addr)
	return buf[0] ^ buf[1] ^ buf[2] ^ buf[3]
}

// CommandFrame builds the two-byte frame for a command opcode.
func CommandFrame(op byte) []byte {
	return []byte{op, CommandChecksum(op)}
}

// AddressFrame builds the 5-byte start address frame:
// 0-3: address (big-endian)
// 4: checksum
func AddressFrame(addr uint32) []byte {
	frame := make([]byte, 5)
	binary.BigEndian.PutUint32(frame[0:4], addr)
	frame[4] = AddressChecksum(addr)
	return frame
}

// DataFrame builds the frame for a WRITE MEMORY payload:
// 0: number of bytes - 1
// 1..n: payload
// n+1: checksum
//
// The payload must hold between MinBlockSize and MaxBlockSize bytes.
func DataFrame(payload []byte) []byte {
	if len(payload) < MinBlockSize || len(payload) > MaxBlockSize {
		panic(fmt.Sprintf("protocol: data frame payload of %d bytes", len(payload)))
	}

	n := byte(len(payload) - 1)
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, n)
	frame = append(frame, payload...)
	frame = append(frame, BlockChecksum(n, payload))
	return frame
}

// MassEraseFrame returns the EXTENDED ERASE selector for a full chip erase.
func MassEraseFrame() []byte {
	return []byte{MassEraseHigh, MassEraseLow, MassEraseChecksum}
}
