package gbpsync

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func syncTopicName() string {
	if v := strings.TrimSpace(os.Getenv("LISTING_SYNC_TOPIC")); v != "" {
		return v
	}
	return "listing-sync"
}

// PublishSyncRun hands a queued run to the worker via Pub/Sub. The publish
// is confirmed before returning so a 202 to the caller means the run is
// actually in flight.
func PublishSyncRun(ctx context.Context, payload SyncPubSubPayload) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic, err := config.CreateTopicIfNotExists(client, syncTopicName())
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = topic.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
	return err
}

// PubSubPushHandler receives push-subscription deliveries. Malformed
// envelopes are acked with 204 so they are never redelivered; a processing
// failure returns 500 so Pub/Sub retries the run.
func PubSubPushHandler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope PubSubPushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			config.LogError(logger, "gbpsync", "PubSubPushHandler", "bind envelope", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil || payload.RunId == 0 {
			config.LogError(logger, "gbpsync", "PubSubPushHandler", "decode payload", envelope.Message.ID, err)
			c.Status(http.StatusNoContent)
			return
		}

		logger.WithFields(logrus.Fields{
			"run_id":     payload.RunId,
			"listing_id": payload.ListingId,
			"message_id": envelope.Message.ID,
		}).Info("processing sync run from push")

		if err := e.ProcessSyncRun(c.Request.Context(), payload.RunId); err != nil {
			config.LogError(logger, "gbpsync", "PubSubPushHandler", "process sync run", payload.RunId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
