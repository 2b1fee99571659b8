package sso

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Notification channels published on redis. Subscribers reload the named
// collection when a message arrives.
const (
	ChannelOrgs    = "gatekeeper:orgs"
	ChannelUsers   = "gatekeeper:users"
	ChannelServers = "gatekeeper:servers"
)

// RedisNotifier publishes collection-changed events over redis pub/sub.
// Publish failures are logged and dropped; notifications are advisory.
type RedisNotifier struct {
	client *redis.Client
	logger *observability.Logger
}

// NewRedisNotifier creates a notifier publishing on the given client.
func NewRedisNotifier(client *redis.Client, logger *observability.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger,
	}
}

func (n *RedisNotifier) publish(ctx context.Context, channel, payload string) {
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.WithError(err).WithField("channel", channel).
			Warn("Failed to publish notification")
	}
}

// OrgsUpdated implements Notifier.
func (n *RedisNotifier) OrgsUpdated(ctx context.Context) {
	n.publish(ctx, ChannelOrgs, "updated")
}

// UsersUpdated implements Notifier.
func (n *RedisNotifier) UsersUpdated(ctx context.Context, orgID string) {
	n.publish(ctx, ChannelUsers, orgID)
}

// ServersUpdated implements Notifier.
func (n *RedisNotifier) ServersUpdated(ctx context.Context) {
	n.publish(ctx, ChannelServers, "updated")
}
