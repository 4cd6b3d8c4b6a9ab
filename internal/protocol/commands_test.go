package protocol

import "testing"

func TestChipName_KnownChips(t *testing.T) {
	tests := []struct {
		pid      uint16
		expected string
	}{
		{0x410, "STM32F10xxx medium-density"},
		{0x413, "STM32F40xxx/41xxx"},
		{0x440, "STM32F05x/F030x8"},
		{0x497, "STM32WLE5xx/WL55xx"},
	}

	for _, tc := range tests {
		result := ChipName(tc.pid)
		if result != tc.expected {
			t.Errorf("ChipName(0x%03X) = %q, want %q", tc.pid, result, tc.expected)
		}
	}
}

func TestChipName_Unknown(t *testing.T) {
	unknownIDs := []uint16{0x000, 0x001, 0x999, 0xFFFF}
	for _, id := range unknownIDs {
		result := ChipName(id)
		if result != UnknownChip {
			t.Errorf("ChipName(0x%X) = %q, want %q", id, result, UnknownChip)
		}
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		b        byte
		expected Response
	}{
		{0x79, ResponseACK},
		{0x1F, ResponseNACK},
		{0x00, ResponseUnknown},
		{0x7F, ResponseUnknown},
		{0xFF, ResponseUnknown},
	}

	for _, tc := range tests {
		result := ClassifyResponse(tc.b)
		if result != tc.expected {
			t.Errorf("ClassifyResponse(0x%02X) = %v, want %v", tc.b, result, tc.expected)
		}
	}
}

func TestResponse_String(t *testing.T) {
	if ResponseACK.String() != "ACK" {
		t.Errorf("ResponseACK.String() = %q, want ACK", ResponseACK.String())
	}
	if ResponseNACK.String() != "NACK" {
		t.Errorf("ResponseNACK.String() = %q, want NACK", ResponseNACK.String())
	}
	if ResponseUnknown.String() != "unknown" {
		t.Errorf("ResponseUnknown.String() = %q, want unknown", ResponseUnknown.String())
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		op       byte
		expected string
	}{
		{CmdInit, "init"},
		{CmdGetID, "get id"},
		{CmdExtendedErase, "extended erase"},
		{CmdWriteMemory, "write memory"},
		{0x43, "unknown command"},
	}

	for _, tc := range tests {
		result := CommandName(tc.op)
		if result != tc.expected {
			t.Errorf("CommandName(0x%02X) = %q, want %q", tc.op, result, tc.expected)
		}
	}
}

func TestConstants(t *testing.T) {
	if CmdInit != 0x7F {
		t.Errorf("CmdInit = 0x%02X, want 0x7F", CmdInit)
	}
	if CmdGetID != 0x02 {
		t.Errorf("CmdGetID = 0x%02X, want 0x02", CmdGetID)
	}
	if CmdExtendedErase != 0x44 {
		t.Errorf("CmdExtendedErase = 0x%02X, want 0x44", CmdExtendedErase)
	}
	if CmdWriteMemory != 0x31 {
		t.Errorf("CmdWriteMemory = 0x%02X, want 0x31", CmdWriteMemory)
	}
	if ACK != 0x79 || NACK != 0x1F {
		t.Errorf("ACK/NACK = 0x%02X/0x%02X, want 0x79/0x1F", ACK, NACK)
	}
	if MaxBlockSize != 256 {
		t.Errorf("MaxBlockSize = %d, want 256", MaxBlockSize)
	}
	if DefaultFlashAddress != 0x08000000 {
		t.Errorf("DefaultFlashAddress = 0x%X, want 0x08000000", DefaultFlashAddress)
	}
}
