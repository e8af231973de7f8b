package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsBus runs over core NATS subjects. Channel names are used as subjects.
type NatsBus struct {
	Conn *nats.Conn
}

func NewNatsBus(url, name string) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NatsBus{Conn: nc}, nil
}

func (b *NatsBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.Conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (b *NatsBus) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	in := make(chan *nats.Msg, bufferSize)
	subs := make([]*nats.Subscription, 0, len(channels))
	unsubscribe := func() {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}

	for _, ch := range channels {
		sub, err := b.Conn.ChanSubscribe(ch, in)
		if err != nil {
			unsubscribe()
			return nil, fmt.Errorf("subscribe %s: %w", ch, err)
		}
		subs = append(subs, sub)
	}
	if err := b.Conn.Flush(); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	out := make(chan Message, bufferSize)
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-in:
				select {
				case out <- Message{Channel: msg.Subject, Payload: msg.Data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *NatsBus) Close() error {
	return b.Conn.Drain()
}
