package cache

import (
	"context"

	"github.com/code19m/errx"
	"github.com/vmihailenco/msgpack/v5"
)

const invalidationChannel = "datakit:invalidation"

// Invalidation announces that a cache region was dropped on some instance.
type Invalidation struct {
	// Region is the cache region that changed.
	Region string `msgpack:"region"`
	// Op names the write kind that caused the drop (create, update, delete).
	Op string `msgpack:"op"`
	// Origin identifies the publishing instance so it can skip its own events.
	Origin string `msgpack:"origin"`
}

// PublishInvalidation broadcasts a region drop to all subscribed instances.
func (c *Cache) PublishInvalidation(ctx context.Context, inv Invalidation) error {
	data, err := msgpack.Marshal(inv)
	if err != nil {
		return errx.Wrap(err)
	}

	if err = c.client.Publish(ctx, c.prefix+keySeparator+invalidationChannel, data).Err(); err != nil {
		c.metrics.errors.Add(1)
		return errx.Wrap(err)
	}
	return nil
}

// SubscribeInvalidations listens for region drops published by other
// instances and calls handler for each one. The call blocks until the
// context is canceled; run it in its own goroutine. Malformed messages
// are skipped.
func (c *Cache) SubscribeInvalidations(ctx context.Context, handler func(Invalidation)) error {
	sub := c.client.Subscribe(ctx, c.prefix+keySeparator+invalidationChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var inv Invalidation
			if err := msgpack.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				continue
			}
			handler(inv)
		}
	}
}
