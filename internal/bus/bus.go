// Package bus is the publish/subscribe transport shared by every server
// process. It carries room events and administrative room commands.
package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Bus publishes to and subscribes on named channels. Delivery is at most
// once: a subscriber that is not connected when a message is published never
// sees it.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers messages until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}

const bufferSize = 256

// New picks the driver named by the configuration. The Redis driver shares
// rdb; the NATS driver opens its own connection.
func New(driver, natsURL, name string, rdb *redis.Client) (Bus, error) {
	switch driver {
	case "", "redis":
		return NewRedisBus(rdb), nil
	case "nats":
		return NewNatsBus(natsURL, name)
	}
	return nil, fmt.Errorf("unknown bus driver %q", driver)
}
