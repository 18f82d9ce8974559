package shortener

import (
	"context"
)

// Generator defines the interface for producing candidate short codes
type Generator interface {
	// GenerateCode returns a candidate code. Candidates are not guaranteed unique.
	GenerateCode(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// CounterProvider defines the interface for managing counters used by generators
type CounterProvider interface {
	// GetNextCounter returns the next counter value for a given key
	GetNextCounter(ctx context.Context, key string) (int64, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// CounterStore persists counter high-water marks
type CounterStore interface {
	// LoadCounter returns the stored value for key, or 0 when none was stored
	LoadCounter(ctx context.Context, key string) (int64, error)

	// StoreCounter upserts the value for key
	StoreCounter(ctx context.Context, key string, value int64) error
}

// Config holds configuration for shortener generators
type Config struct {
	Type        string `json:"type" mapstructure:"type"`
	CodeLength  int    `json:"code_length" mapstructure:"code_length"`
	MaxAttempts int    `json:"max_attempts" mapstructure:"max_attempts"`
	CounterStep int64  `json:"counter_step" mapstructure:"counter_step"` // Step size for counter-based generators
}

// Generator type constants
const (
	TypeRandom  = "random"
	TypeCounter = "counter"
)

const (
	DefaultCodeLength  = 7
	MaxCodeLength      = 10 // 62^10 still fits in a uint64
	DefaultMaxAttempts = 10
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Type:        TypeRandom,
		CodeLength:  DefaultCodeLength,
		MaxAttempts: DefaultMaxAttempts,
		CounterStep: 1,
	}
}
