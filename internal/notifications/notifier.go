// Package notifications fans tweet events out to followers over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Event types published on user channels.
const (
	EventTweetPosted  = "tweet_posted"
	EventTweetDeleted = "tweet_deleted"
	EventFollowed     = "followed"
)

// Event is the payload delivered to a user channel.
type Event struct {
	Type    string `json:"type"`
	TweetID uint   `json:"tweet_id,omitempty"`
	UserID  uint   `json:"user_id"`
	Tweet   string `json:"tweet,omitempty"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if !n.enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishEvent encodes event once and publishes it to every recipient's channel.
// Delivery continues past individual failures; the joined error is returned.
func (n *Notifier) PublishEvent(ctx context.Context, recipients []uint, event Event) error {
	if !n.enabled() || len(recipients) == 0 {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var errs []error
	for _, id := range recipients {
		if err := n.PublishUser(ctx, id, string(payload)); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
