package realtime

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrFeedClosed is returned by a follow func whose subscription ended
// without the caller asking for it.
var ErrFeedClosed = errors.New("realtime: change feed closed")

// DefaultRetryDelay is the pause between resubscribe attempts when none is
// configured.
const DefaultRetryDelay = time.Second

// Follow keeps a subscription open until ctx ends. topics is evaluated on
// every (re)subscribe. follow consumes one subscription: returning nil
// resubscribes at once, any other error resubscribes after retry. A failed
// Subscribe is retried after the same pause.
func Follow(ctx context.Context, sub Subscriber, retry time.Duration, logger log.FieldLogger,
	topics func() []Topic, follow func(context.Context, *Subscription) error) {
	if retry <= 0 {
		retry = DefaultRetryDelay
	}
	for ctx.Err() == nil {
		subscription, err := sub.Subscribe(ctx, topics()...)
		if err == nil {
			err = follow(ctx, subscription)
			subscription.Close()
			if err == nil {
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		logger.WithError(err).Warn("change feed lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
