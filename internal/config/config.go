// Package config loads flashing profiles from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/flasher"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/reset"
)

// Profile holds everything needed to flash one kind of board.
type Profile struct {
	Port         string        `yaml:"port"`
	Baud         int           `yaml:"baud"`
	Address      uint32        `yaml:"address"`
	Reset        string        `yaml:"reset"`
	NRSTPin      string        `yaml:"nrst_gpio"`
	BOOT0Pin     string        `yaml:"boot0_gpio"`
	ExpectID     string        `yaml:"expect_id"`
	AckTimeout   time.Duration `yaml:"ack_timeout"`
	EraseTimeout time.Duration `yaml:"erase_timeout"`
	SyncAttempts int           `yaml:"sync_attempts"`
	BlockSize    int           `yaml:"block_size"`
}

// Default returns the profile used when no file is given.
func Default() Profile {
	cfg := flasher.DefaultConfig()
	return Profile{
		Baud:         protocol.DefaultBaudRate,
		Address:      protocol.DefaultFlashAddress,
		Reset:        string(reset.ModePrompt),
		AckTimeout:   cfg.AckTimeout,
		EraseTimeout: cfg.EraseTimeout,
		SyncAttempts: 3,
		BlockSize:    cfg.BlockSize,
	}
}

// Load reads a profile file. Keys missing from the file keep their defaults.
func Load(path string) (Profile, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

// Example returns a YAML rendering of the default profile.
func Example() string {
	out, err := yaml.Marshal(Default())
	if err != nil {
		return ""
	}
	return string(out)
}

// Validate checks the profile for values the flasher cannot use.
func (p Profile) Validate() error {
	if p.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", p.Baud)
	}
	mode, err := reset.ParseMode(p.Reset)
	if err != nil {
		return err
	}
	if mode == reset.ModeGPIO && (p.NRSTPin == "" || p.BOOT0Pin == "") {
		return fmt.Errorf("reset mode gpio needs nrst_gpio and boot0_gpio")
	}
	if p.ExpectID != "" {
		if _, err := flasher.ParseChipID(p.ExpectID); err != nil {
			return err
		}
	}
	if p.BlockSize < protocol.MinBlockSize || p.BlockSize > protocol.MaxBlockSize {
		return fmt.Errorf("block_size must be %d-%d, got %d",
			protocol.MinBlockSize, protocol.MaxBlockSize, p.BlockSize)
	}
	if p.AckTimeout <= 0 || p.EraseTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if p.SyncAttempts < 1 {
		return fmt.Errorf("sync_attempts must be at least 1, got %d", p.SyncAttempts)
	}
	return nil
}

// Options converts the profile into flasher options.
func (p Profile) Options() ([]flasher.Option, error) {
	opts := []flasher.Option{
		flasher.WithAckTimeout(p.AckTimeout),
		flasher.WithEraseTimeout(p.EraseTimeout),
		flasher.WithBlockSize(p.BlockSize),
		flasher.WithSyncAttempts(p.SyncAttempts),
	}
	if p.ExpectID != "" {
		id, err := flasher.ParseChipID(p.ExpectID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, flasher.WithExpectedChipID(id))
	}
	return opts, nil
}
