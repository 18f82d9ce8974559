package service

import (
	"context"
	"fmt"
	"sync"
)

// TestGenerator replays a fixed list of codes, then falls back to test0001, test0002, ...
type TestGenerator struct {
	mu      sync.Mutex
	codes   []string
	counter int
}

// NewTestGenerator creates a new test generator
func NewTestGenerator(codes ...string) *TestGenerator {
	return &TestGenerator{codes: codes}
}

// GenerateCode returns the next scripted code
func (g *TestGenerator) GenerateCode(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.codes) > 0 {
		code := g.codes[0]
		g.codes = g.codes[1:]
		return code, nil
	}

	g.counter++
	return fmt.Sprintf("test%04d", g.counter), nil
}

// Type returns the generator type
func (g *TestGenerator) Type() string {
	return "test"
}

// Close performs cleanup
func (g *TestGenerator) Close() error {
	return nil
}
