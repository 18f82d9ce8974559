package shortener

import (
	"context"
	"math/bits"
	"strings"
)

// CounterGenerator generates obfuscated short codes using a monotonic counter with bit manipulation
type CounterGenerator struct {
	counterProvider CounterProvider
	counterKey      string
	length          int
	minVal          uint64 // 62^(length-1), smallest value encoding to length characters
	rangeSize       uint64 // 62^length - 62^(length-1)
	multiplier      uint64 // Large odd multiplier for obfuscation
	salt            uint64
}

// NewCounterGenerator creates a new counter-based generator producing codes of the given length
func NewCounterGenerator(counterProvider CounterProvider, length int) *CounterGenerator {
	if length <= 0 || length > MaxCodeLength {
		length = DefaultCodeLength
	}

	minVal := pow62(length - 1)
	return &CounterGenerator{
		counterProvider: counterProvider,
		counterKey:      "link_counter",
		length:          length,
		minVal:          minVal,
		rangeSize:       pow62(length) - minVal,
		multiplier:      0x5DEECE66D,
		salt:            0x9E3779B97F4A7C15,
	}
}

func pow62(n int) uint64 {
	result := uint64(1)
	for i := 0; i < n; i++ {
		result *= uint64(len(Alphabet))
	}
	return result
}

// GenerateCode generates an obfuscated code from the next counter value
func (g *CounterGenerator) GenerateCode(ctx context.Context) (string, error) {
	counter, err := g.counterProvider.GetNextCounter(ctx, g.counterKey)
	if err != nil {
		return "", err
	}

	return g.encodeCounter(uint64(counter)), nil
}

// encodeCounter scrambles the counter and maps it into the fixed-length range
func (g *CounterGenerator) encodeCounter(counter uint64) string {
	transformed := g.obfuscateValue(counter)
	return g.toBase62((transformed % g.rangeSize) + g.minVal)
}

// obfuscateValue hides the sequential structure of the counter
func (g *CounterGenerator) obfuscateValue(value uint64) uint64 {
	result := value ^ g.salt
	result *= g.multiplier
	result = bits.RotateLeft64(result, 21)
	result ^= bits.RotateLeft64(result, 32)

	lower := uint32(result & 0xFFFFFFFF)
	upper := uint32(result >> 32)
	return (uint64(bits.Reverse32(lower)) << 32) | uint64(upper)
}

// toBase62 converts a number to its Alphabet representation
func (g *CounterGenerator) toBase62(num uint64) string {
	if num == 0 {
		return Alphabet[:1]
	}

	buf := make([]byte, 0, MaxCodeLength+1)
	for num > 0 {
		buf = append(buf, Alphabet[num%62])
		num /= 62
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// fromBase62 converts an Alphabet string back to a number
func (g *CounterGenerator) fromBase62(str string) uint64 {
	result := uint64(0)
	for _, char := range str {
		result = result*62 + uint64(strings.IndexRune(Alphabet, char))
	}
	return result
}

// Type returns the generator type
func (g *CounterGenerator) Type() string {
	return TypeCounter
}

// Close performs cleanup
func (g *CounterGenerator) Close() error {
	if g.counterProvider != nil {
		return g.counterProvider.Close()
	}
	return nil
}

// GenerateCodeForID generates a code for a specific counter value (for testing)
func (g *CounterGenerator) GenerateCodeForID(id uint64) string {
	return g.encodeCounter(id)
}

// Ensure CounterGenerator implements Generator interface
var _ Generator = (*CounterGenerator)(nil)
