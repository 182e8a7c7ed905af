package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMailbox keeps one list per user and kind and wakes waiters through a
// per-user pub/sub channel, so any API instance can serve the long poll.
type RedisMailbox struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMailbox(client *redis.Client) *RedisMailbox {
	return &RedisMailbox{client: client, ttl: 24 * time.Hour}
}

// ConnectRedis parses a redis:// URL and checks the server is reachable.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func queueKey(userID string, kind Kind) string {
	return "mailbox:" + userID + ":" + string(kind)
}

func signalChannel(userID string) string {
	return "mailbox:" + userID
}

func (r *RedisMailbox) Push(ctx context.Context, userID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := queueKey(userID, event.Kind)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -maxQueued, -1)
		pipe.Expire(ctx, key, r.ttl)
		pipe.Publish(ctx, signalChannel(userID), string(event.Kind))
		return nil
	})
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

func (r *RedisMailbox) Wait(ctx context.Context, userID string, kinds ...Kind) ([]Event, error) {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	// Subscribe before the first drain so a push in between is not missed.
	sub := r.client.Subscribe(ctx, signalChannel(userID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	signals := sub.Channel()

	for {
		events, err := r.drain(ctx, userID, kinds)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}

		select {
		case <-signals:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *RedisMailbox) drain(ctx context.Context, userID string, kinds []Kind) ([]Event, error) {
	cmds := make([]*redis.StringSliceCmd, len(kinds))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range kinds {
			key := queueKey(userID, k)
			cmds[i] = pipe.LRange(ctx, key, 0, -1)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain mailbox: %w", err)
	}

	var events []Event
	for _, cmd := range cmds {
		for _, raw := range cmd.Val() {
			var e Event
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				continue
			}
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}
