// Package reset provides gates that bring an STM32 into its system memory
// bootloader before synchronization.
package reset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/flasher"
)

// Mode selects how the device is reset into the bootloader.
type Mode string

const (
	ModePrompt Mode = "prompt" // ask the operator to press reset
	ModeDTR    Mode = "dtr"    // pulse the serial modem lines
	ModeGPIO   Mode = "gpio"   // drive NRST/BOOT0 from host GPIO pins
	ModeNone   Mode = "none"   // device is already waiting for the init byte
)

// ParseMode validates a reset mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePrompt, ModeDTR, ModeGPIO, ModeNone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown reset mode %q (want prompt, dtr, gpio or none)", s)
	}
}

// Prompt returns a gate that asks the operator to reset the device and
// blocks until a line is read from in.
func Prompt(in io.Reader, out io.Writer) flasher.Gate {
	r := bufio.NewReader(in)
	return func() error {
		fmt.Fprint(out, "Reset the STM32 into its bootloader now, then press Enter...")
		if _, err := r.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("no confirmation from operator")
			}
			return err
		}
		return nil
	}
}

// LineResetter is a port able to reset the device through its modem lines.
type LineResetter interface {
	ResetToBootloader() error
}

// ModemLines returns a gate that resets the device with DTR/RTS.
func ModemLines(port LineResetter) flasher.Gate {
	return func() error {
		if err := port.ResetToBootloader(); err != nil {
			return fmt.Errorf("failed to reset into bootloader: %w", err)
		}
		return nil
	}
}

type outPin interface {
	Out(l gpio.Level) error
}

// GPIO returns a gate that drives NRST (active low) and BOOT0 through the
// named host GPIO pins, e.g. "GPIO17" on a Raspberry Pi.
func GPIO(nrstName, boot0Name string) (flasher.Gate, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	nrst := gpioreg.ByName(nrstName)
	if nrst == nil {
		return nil, fmt.Errorf("unknown NRST pin %q", nrstName)
	}
	boot0 := gpioreg.ByName(boot0Name)
	if boot0 == nil {
		return nil, fmt.Errorf("unknown BOOT0 pin %q", boot0Name)
	}

	return pinGate(nrst, boot0, 100*time.Millisecond), nil
}

func pinGate(nrst, boot0 outPin, hold time.Duration) flasher.Gate {
	return func() error {
		// Select system memory boot and hold the core in reset
		if err := boot0.Out(gpio.High); err != nil {
			return fmt.Errorf("BOOT0: %w", err)
		}
		if err := nrst.Out(gpio.Low); err != nil {
			return fmt.Errorf("NRST: %w", err)
		}
		time.Sleep(hold)

		// Release reset, BOOT0 is sampled on the rising edge
		if err := nrst.Out(gpio.High); err != nil {
			return fmt.Errorf("NRST: %w", err)
		}
		time.Sleep(hold / 2)

		if err := boot0.Out(gpio.Low); err != nil {
			return fmt.Errorf("BOOT0: %w", err)
		}
		return nil
	}
}
