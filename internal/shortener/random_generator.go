package shortener

import (
	"context"
	"math/rand"
)

// Alphabet is the 62-character code alphabet: lowercase, uppercase, digits
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MaxCustomCodeLength bounds caller-supplied codes
const MaxCustomCodeLength = 64

// Generate draws length independent uniform samples from Alphabet.
// A non-positive length falls back to DefaultCodeLength.
func Generate(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}

	code := make([]byte, length)
	for i := range code {
		code[i] = Alphabet[rand.Intn(len(Alphabet))]
	}
	return string(code)
}

// IsValidCode reports whether code is a non-empty alphanumeric string of acceptable length
func IsValidCode(code string) bool {
	if code == "" || len(code) > MaxCustomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// RandomGenerator produces uniformly random fixed-length codes
type RandomGenerator struct {
	length int
}

// NewRandomGenerator creates a random generator producing codes of the given length
func NewRandomGenerator(length int) *RandomGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &RandomGenerator{length: length}
}

// GenerateCode returns a fresh random code
func (g *RandomGenerator) GenerateCode(ctx context.Context) (string, error) {
	return Generate(g.length), nil
}

// Type returns the generator type
func (g *RandomGenerator) Type() string {
	return TypeRandom
}

// Close performs cleanup
func (g *RandomGenerator) Close() error {
	return nil
}

// Ensure RandomGenerator implements Generator interface
var _ Generator = (*RandomGenerator)(nil)
