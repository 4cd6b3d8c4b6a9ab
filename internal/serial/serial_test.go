package serial

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type lineChange struct {
	line  string
	value bool
}

type mockSerialPort struct {
	rx          []byte
	tx          []byte
	readTimeout time.Duration
	timeouts    []time.Duration
	lines       []lineChange
	inputResets int
	drains      int
	closed      bool
	failTimeout bool
}

func (*mockSerialPort) SetMode(_ *serial.Mode) error {
	return nil
}

func (m *mockSerialPort) Read(p []byte) (int, error) {
	if m.closed {
		return 0, errors.New("port is closed")
	}
	n := copy(p, m.rx)
	m.rx = m.rx[n:]
	return n, nil
}

func (m *mockSerialPort) Write(p []byte) (int, error) {
	m.tx = append(m.tx, p...)
	return len(p), nil
}

func (m *mockSerialPort) Drain() error {
	m.drains++
	return nil
}

func (m *mockSerialPort) ResetInputBuffer() error {
	m.inputResets++
	m.rx = nil
	return nil
}

func (*mockSerialPort) ResetOutputBuffer() error {
	return nil
}

func (m *mockSerialPort) SetDTR(v bool) error {
	m.lines = append(m.lines, lineChange{"DTR", v})
	return nil
}

func (m *mockSerialPort) SetRTS(v bool) error {
	m.lines = append(m.lines, lineChange{"RTS", v})
	return nil
}

func (*mockSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (m *mockSerialPort) SetReadTimeout(t time.Duration) error {
	if m.failTimeout {
		return errors.New("timeout not supported")
	}
	m.readTimeout = t
	m.timeouts = append(m.timeouts, t)
	return nil
}

func (m *mockSerialPort) Close() error {
	m.closed = true
	return nil
}

func (*mockSerialPort) Break(_ time.Duration) error {
	return nil
}

func TestNewPort_SetsDefaultTimeout(t *testing.T) {
	m := &mockSerialPort{}
	p, err := newPort(m, "/dev/ttyUSB0", 115200)
	require.NoError(t, err)

	assert.Equal(t, defaultReadTimeout, m.readTimeout)
	assert.Equal(t, "/dev/ttyUSB0", p.PortName())
	assert.Equal(t, 115200, p.BaudRate())
}

func TestNewPort_TimeoutError(t *testing.T) {
	_, err := newPort(&mockSerialPort{failTimeout: true}, "/dev/ttyUSB0", 115200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set read timeout")
}

func TestReadWithTimeout_RestoresDefault(t *testing.T) {
	m := &mockSerialPort{rx: []byte{0x79}}
	p, err := newPort(m, "COM13", 9600)
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := p.ReadWithTimeout(buf, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(0x79), buf[0])

	assert.Equal(t, []time.Duration{defaultReadTimeout, 30 * time.Second, defaultReadTimeout}, m.timeouts)
}

func TestReadWithTimeout_Empty(t *testing.T) {
	p, err := newPort(&mockSerialPort{}, "COM13", 9600)
	require.NoError(t, err)

	n, err := p.ReadWithTimeout(make([]byte, 1), time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteDrainReset(t *testing.T) {
	m := &mockSerialPort{rx: []byte{0x00, 0x01}}
	p, err := newPort(m, "COM13", 9600)
	require.NoError(t, err)

	_, err = p.Write([]byte{0x7F})
	require.NoError(t, err)
	require.NoError(t, p.Drain())
	require.NoError(t, p.ResetInputBuffer())

	assert.Equal(t, []byte{0x7F}, m.tx)
	assert.Equal(t, 1, m.drains)
	assert.Empty(t, m.rx)
}

func TestResetToBootloader_Sequence(t *testing.T) {
	m := &mockSerialPort{}
	p, err := newPort(m, "COM13", 9600)
	require.NoError(t, err)

	require.NoError(t, p.ResetToBootloader())

	expected := []lineChange{
		{"DTR", true},
		{"RTS", true},
		{"RTS", false},
		{"DTR", false},
	}
	assert.Equal(t, expected, m.lines)
	assert.Equal(t, 1, m.inputResets)
}

func TestHardReset_Sequence(t *testing.T) {
	m := &mockSerialPort{}
	p, err := newPort(m, "COM13", 9600)
	require.NoError(t, err)

	require.NoError(t, p.HardReset())

	expected := []lineChange{
		{"DTR", false},
		{"RTS", true},
		{"RTS", false},
	}
	assert.Equal(t, expected, m.lines)
}

func TestClose(t *testing.T) {
	m := &mockSerialPort{}
	p, err := newPort(m, "COM13", 9600)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, m.closed)

	var nilPort Port
	assert.NoError(t, nilPort.Close())
}
