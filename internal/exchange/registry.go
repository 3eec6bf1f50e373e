package exchange

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds an adapter from its credentials.
type Factory func(creds Credentials) Exchange

var registry = map[string]Factory{}

// Register adds a venue factory. It panics on an empty name, a nil factory or
// a duplicate registration.
func Register(name string, factory Factory) {
	key := normalize(name)
	if key == "" {
		panic("exchange: empty venue name")
	}
	if factory == nil {
		panic(fmt.Sprintf("exchange: nil factory for %s", name))
	}
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("exchange: duplicate registration for %s", key))
	}
	registry[key] = factory
}

// Supported reports whether name has a registered factory.
func Supported(name string) bool {
	_, ok := registry[normalize(name)]
	return ok
}

// New builds the adapter registered under name.
func New(name string, creds Credentials) (Exchange, error) {
	factory, ok := registry[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExchange, name)
	}
	return factory(creds), nil
}

// Names lists registered venues in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
