package detect

import (
	"fmt"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/flasher"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/reset"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/serial"
)

// Result represents a detected STM32 bootloader.
type Result struct {
	Port     string
	ChipID   flasher.ChipID
	ChipName string
}

// Device is an open port the bootloader can be reached through.
// *serial.Port implements it.
type Device interface {
	flasher.Port
	reset.LineResetter
	HardReset() error
	Close() error
}

// GateFunc builds the reset gate used before synchronizing on d.
type GateFunc func(d Device) (flasher.Gate, error)

// ModemLineGate resets each probed device through DTR/RTS.
func ModemLineGate(d Device) (flasher.Gate, error) {
	return reset.ModemLines(d), nil
}

// FixedGate uses the same gate for every device, e.g. a GPIO or operator
// prompt gate. A nil gate skips the reset.
func FixedGate(gate flasher.Gate) GateFunc {
	return func(Device) (flasher.Gate, error) {
		return gate, nil
	}
}

// Connection is a synchronized session on a detected device. The caller
// owns Device and must close it.
type Connection struct {
	Port    string
	Device  Device
	Session *flasher.Session
}

type scanner struct {
	open func(name string, baud int) (Device, error)
	list func() ([]string, error)
}

var defaultScanner = scanner{
	open: func(name string, baud int) (Device, error) {
		return serial.Open(name, baud)
	},
	list: serial.ListPorts,
}

// Connect scans all ports and returns the first one whose bootloader
// synchronizes, leaving it open. The session is ready for GET ID or Flash;
// the bootloader is not synchronized a second time.
func Connect(baudRate int, gate GateFunc, opts ...flasher.Option) (*Connection, error) {
	return defaultScanner.first(baudRate, gate, opts)
}

// ConnectOnPort opens portName and synchronizes with its bootloader.
func ConnectOnPort(portName string, baudRate int, gate GateFunc, opts ...flasher.Option) (*Connection, error) {
	return defaultScanner.connect(portName, baudRate, gate, opts)
}

// DetectOnPort tries to detect an STM32 bootloader on a specific port.
func DetectOnPort(portName string, baudRate int, gate GateFunc, opts ...flasher.Option) (*Result, error) {
	return defaultScanner.probe(portName, baudRate, gate, opts)
}

// ListDevices scans all ports and returns every bootloader that answered.
func ListDevices(baudRate int, gate GateFunc, opts ...flasher.Option) ([]Result, error) {
	return defaultScanner.all(baudRate, gate, opts)
}

func (s scanner) first(baudRate int, gate GateFunc, opts []flasher.Option) (*Connection, error) {
	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		conn, err := s.connect(portName, baudRate, gate, opts)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no STM32 bootloader found (last error: %w)", lastErr)
	}
	return nil, fmt.Errorf("no STM32 bootloader found")
}

func (s scanner) all(baudRate int, gate GateFunc, opts []flasher.Option) ([]Result, error) {
	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	var results []Result
	for _, portName := range ports {
		result, err := s.probe(portName, baudRate, gate, opts)
		if err == nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

func (s scanner) connect(portName string, baudRate int, gate GateFunc, opts []flasher.Option) (*Connection, error) {
	port, err := s.open(portName, baudRate)
	if err != nil {
		return nil, err
	}

	g, err := gate(port)
	if err != nil {
		port.Close()
		return nil, err
	}

	session, err := flasher.Connect(port, g, opts...)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to sync on %s: %w", portName, err)
	}

	return &Connection{Port: portName, Device: port, Session: session}, nil
}

func (s scanner) probe(portName string, baudRate int, gate GateFunc, opts []flasher.Option) (*Result, error) {
	conn, err := s.connect(portName, baudRate, gate, opts)
	if err != nil {
		return nil, err
	}
	defer conn.Device.Close()

	id, err := conn.Session.GetChipID()
	if err != nil {
		// Sync worked, so something speaks the bootloader protocol
		return &Result{
			Port:     portName,
			ChipName: "STM32 (unknown variant)",
		}, nil
	}

	return &Result{
		Port:     portName,
		ChipID:   id,
		ChipName: id.Name(),
	}, nil
}
