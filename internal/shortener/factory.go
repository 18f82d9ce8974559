package shortener

import (
	"fmt"
)

// NewGenerator creates the generator selected by config. The counter
// generator needs a CounterStore; the random generator ignores it.
func NewGenerator(config Config, store CounterStore) (Generator, error) {
	switch config.Type {
	case "", TypeRandom:
		return NewRandomGenerator(config.CodeLength), nil
	case TypeCounter:
		if store == nil {
			return nil, fmt.Errorf("counter store required for counter-based generator")
		}
		counterProvider := NewCounterCache(store, config.CounterStep)
		return NewCounterGenerator(counterProvider, config.CodeLength), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", config.Type)
	}
}
