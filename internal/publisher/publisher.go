// Package publisher announces synced snapshots to downstream consumers.
package publisher

import (
	"context"
	"fmt"
	"sync"
)

// Publisher delivers one announcement payload per successful sync.
type Publisher interface {
	Publish(ctx context.Context, payload any) (id string, err error)
	Close() error
}

// Memory stores published payloads for inspection. Used by tests and as
// the default no-infrastructure provider.
type Memory struct {
	mu       sync.RWMutex
	payloads []any
}

// NewMemory returns a Memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the payload and returns a pseudo ID.
func (p *Memory) Publish(_ context.Context, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("memory-%d", len(p.payloads)), nil
}

// Close implements Publisher.
func (p *Memory) Close() error { return nil }

// Payloads returns the recorded publishes.
func (p *Memory) Payloads() []any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}
