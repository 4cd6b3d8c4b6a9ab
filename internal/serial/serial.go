package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const defaultReadTimeout = 100 * time.Millisecond

// Port wraps a serial port configured for the STM32 USART bootloader.
type Port struct {
	port     serial.Port
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate.
// The bootloader requires 8 data bits, even parity and one stop bit.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	p, err := newPort(port, portName, baudRate)
	if err != nil {
		port.Close()
		return nil, err
	}
	return p, nil
}

func newPort(port serial.Port, portName string, baudRate int) (*Port, error) {
	// Set read timeout
	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Write writes data to the serial port.
func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

// ReadWithTimeout reads data with a specific timeout.
// It returns 0 bytes and a nil error when the timeout expires.
func (p *Port) ReadWithTimeout(buf []byte, timeout time.Duration) (int, error) {
	if err := p.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	defer p.port.SetReadTimeout(defaultReadTimeout)

	return p.port.Read(buf)
}

// Drain waits until all written data has been transmitted.
func (p *Port) Drain() error {
	return p.port.Drain()
}

// ResetInputBuffer discards any received but unread data.
func (p *Port) ResetInputBuffer() error {
	return p.port.ResetInputBuffer()
}

// SetDTR sets the DTR signal.
func (p *Port) SetDTR(value bool) error {
	return p.port.SetDTR(value)
}

// SetRTS sets the RTS signal.
func (p *Port) SetRTS(value bool) error {
	return p.port.SetRTS(value)
}

// ResetToBootloader resets the STM32 into its system memory bootloader
// using the modem control lines. It assumes the common wiring where RTS
// drives NRST (asserted = held in reset) and DTR drives BOOT0 (asserted =
// boot from system memory).
func (p *Port) ResetToBootloader() error {
	// Step 1: select system memory boot and hold the core in reset
	if err := p.SetDTR(true); err != nil {
		return err
	}
	if err := p.SetRTS(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	// Step 2: release reset, BOOT0 is sampled on the rising edge
	if err := p.SetRTS(false); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)

	// Step 3: release BOOT0 so the next plain reset runs the application
	if err := p.SetDTR(false); err != nil {
		return err
	}

	// Flush any garbage from reset
	p.ResetInputBuffer()
	time.Sleep(100 * time.Millisecond)

	return nil
}

// HardReset performs a hard reset (without entering bootloader).
func (p *Port) HardReset() error {
	if err := p.SetDTR(false); err != nil {
		return err
	}
	// Pull NRST low then release
	if err := p.SetRTS(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := p.SetRTS(false); err != nil {
		return err
	}
	return nil
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
