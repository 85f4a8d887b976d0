package chat

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

// Fallback receives messages nothing else consumed. It only traces them for now.
type Fallback struct{}

func (Fallback) Handle(_ context.Context, msg *bot.InboundMessage) (bool, error) {
	log.WithFields(log.Fields{
		"object": "Fallback",
		"chat":   msg.ReplyTarget(),
	}).Trace("unhandled message")
	return true, nil
}
