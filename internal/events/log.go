package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

// LogHandler 把每条通知写进日志
type LogHandler struct{}

func (LogHandler) HandleEvent(_ context.Context, env Envelope) {
	fields := logrus.Fields{
		"event_id": env.ID,
		"kind":     env.Kind,
		"party":    Party(env.Event).Hex(),
	}
	if collection, tokenID, ok := Subject(env.Event); ok {
		fields["collection"] = collection.Hex()
		fields["token_id"] = tokenID.String()
	}
	logger.WithFields(fields).Info("[event] emitted")
}
