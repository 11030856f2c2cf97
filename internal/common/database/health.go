package database

import (
	"context"
	"sort"
)

// Pinger is any backend that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check pings every named backend and returns the failures by name.
func Check(ctx context.Context, backends map[string]Pinger) map[string]error {
	failures := make(map[string]error)
	for name, b := range backends {
		if err := b.Ping(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Names lists the backends in a stable order.
func Names(backends map[string]Pinger) []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
