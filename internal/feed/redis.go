package feed

import (
	"context"
	"io"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroker publishes product-changed notifications on a pub/sub channel
// and hands out subscriptions for the live product feed.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	logger  *log.Logger
}

func NewRedisBroker(rdb *redis.Client, channel string, logger *log.Logger) *RedisBroker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisBroker{rdb: rdb, channel: channel, logger: logger}
}

// ProductChanged publishes the product id. Publish failures are logged and
// dropped; the feed is advisory and must never fail a commit that already
// happened.
func (b *RedisBroker) ProductChanged(ctx context.Context, productID string) {
	if err := b.rdb.Publish(ctx, b.channel, productID).Err(); err != nil {
		b.logger.Printf("feed: publish channel=%s product_id=%s error=%v", b.channel, productID, err)
	}
}

// Subscribe returns a channel of product ids that closes when ctx is done.
func (b *RedisBroker) Subscribe(ctx context.Context) <-chan string {
	sub := b.rdb.Subscribe(ctx, b.channel)
	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
