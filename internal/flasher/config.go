package flasher

import (
	"time"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/protocol"
)

// Config holds the session configuration.
type Config struct {
	// AckTimeout bounds every wait for an ACK or response byte, except the
	// mass erase acknowledgement.
	AckTimeout time.Duration

	// EraseTimeout bounds the wait for the mass erase acknowledgement. The
	// device erases synchronously before answering.
	EraseTimeout time.Duration

	// BlockSize is the payload size of each WRITE MEMORY command (1-256).
	BlockSize int

	// SyncAttempts is the number of gate + synchronize attempts made by Connect.
	SyncAttempts int

	// QueryChipID makes Flash issue GET ID before erasing.
	QueryChipID bool

	// ExpectedChipID, when set, makes GET ID a hard precondition: a device
	// reporting a different identifier fails the session.
	ExpectedChipID ChipID

	// Sink receives status events (optional).
	Sink EventSink
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AckTimeout:   3 * time.Second,
		EraseTimeout: 30 * time.Second,
		BlockSize:    protocol.MaxBlockSize,
		SyncAttempts: 1,
		QueryChipID:  true,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithAckTimeout sets the command acknowledgement timeout.
func WithAckTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.AckTimeout = timeout
		}
	}
}

// WithEraseTimeout sets the mass erase acknowledgement timeout.
func WithEraseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.EraseTimeout = timeout
		}
	}
}

// WithBlockSize sets the WRITE MEMORY payload size.
func WithBlockSize(size int) Option {
	return func(c *Config) {
		if size >= protocol.MinBlockSize && size <= protocol.MaxBlockSize {
			c.BlockSize = size
		}
	}
}

// WithSyncAttempts sets how many times Connect may run the reset gate.
func WithSyncAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.SyncAttempts = attempts
		}
	}
}

// WithQueryChipID enables or disables GET ID during Flash.
func WithQueryChipID(query bool) Option {
	return func(c *Config) {
		c.QueryChipID = query
	}
}

// WithExpectedChipID requires the device to report the given identifier.
func WithExpectedChipID(id ChipID) Option {
	return func(c *Config) {
		c.ExpectedChipID = id.clone()
	}
}

// WithSink sets the status event sink.
func WithSink(sink EventSink) Option {
	return func(c *Config) {
		c.Sink = sink
	}
}

func newConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BlockSize < protocol.MinBlockSize || cfg.BlockSize > protocol.MaxBlockSize {
		cfg.BlockSize = protocol.MaxBlockSize
	}
	def := DefaultConfig()
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = def.AckTimeout
	}
	if cfg.EraseTimeout <= 0 {
		cfg.EraseTimeout = def.EraseTimeout
	}
	if cfg.SyncAttempts < 1 {
		cfg.SyncAttempts = 1
	}
	return cfg
}
