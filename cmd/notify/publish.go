package main

import (
	"encoding/json"
	"fmt"

	configRedis "dogeow-realtime/config/redis"
	"dogeow-realtime/internal/realtime"
	redisDelivery "dogeow-realtime/internal/realtime/delivery/redis"

	"github.com/spf13/cobra"
)

var (
	publishChannel string
	publishUserID  int64
	publishEvent   string
	publishData    string
)

// publishCmd broadcasts an event the way the Laravel Redis broadcaster does
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Broadcast an event through the Redis broadcaster",
	Long: `Publish writes a broadcast to Redis in the Laravel broadcaster format, for
exercising a listener without the API. Use --user-id to target a user's
notification channel or --channel for any wire channel name.`,
	Example: `  notify publish --user-id 7 --data '{"notification":{"id":"1"},"count":3}'
  notify publish --channel knowledge-index --event .knowledge.index.updated`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishChannel, "channel", "", "Wire channel name, e.g. private-user.7.notifications")
	publishCmd.Flags().Int64Var(&publishUserID, "user-id", 0, "Publish on this user's notification channel")
	publishCmd.Flags().StringVar(&publishEvent, "event", realtime.EventNotificationCreated, "Event name")
	publishCmd.Flags().StringVar(&publishData, "data", "{}", "Event payload as JSON")
	publishCmd.MarkFlagsMutuallyExclusive("channel", "user-id")
	publishCmd.MarkFlagsOneRequired("channel", "user-id")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Redis.Enabled() {
		return fmt.Errorf("REDIS_HOST is required to publish")
	}
	if !json.Valid([]byte(publishData)) {
		return fmt.Errorf("--data is not valid JSON")
	}

	ch := realtime.ParseWireChannel(publishChannel)
	if publishUserID > 0 {
		ch = realtime.UserNotificationsChannel(publishUserID)
	}

	redisClient, err := configRedis.Connect(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx := cmd.Context()
	publisher := redisDelivery.NewPublisher(redisClient, cfg.Broadcast.RedisPrefix)
	if err := publisher.Publish(ctx, ch, publishEvent, json.RawMessage(publishData)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logger.Infof(ctx, "Published %s on %s", publishEvent, ch.WireName())
	return nil
}
