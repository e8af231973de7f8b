package chathub_test

import (
	"context"
	"errors"
	"sync"

	"chatsock/backend/internal/bus"
)

// fakeBus records publishes and lets tests push inbound messages.
type fakeBus struct {
	mu        sync.Mutex
	published []bus.Message
	failWith  error
	inbound   chan bus.Message
	channels  []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{inbound: make(chan bus.Message, 10)}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, bus.Message{Channel: channel, Payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error) {
	if b.failWith != nil {
		return nil, b.failWith
	}
	b.channels = channels
	out := make(chan bus.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.inbound:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) Published() []bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bus.Message(nil), b.published...)
}

var errBusDown = errors.New("bus down")
