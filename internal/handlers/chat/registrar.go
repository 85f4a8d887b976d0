package chat

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/db"
)

type userStore interface {
	UpsertUser(ctx context.Context, user *db.User) error
}

// Registrar records every sender that reaches it. It never stops the chain.
type Registrar struct {
	store userStore
}

func NewRegistrar(store userStore) *Registrar {
	return &Registrar{store: store}
}

func (r *Registrar) Handle(ctx context.Context, msg *bot.InboundMessage) (bool, error) {
	if msg == nil || msg.SenderID == "" {
		return true, nil
	}
	err := r.store.UpsertUser(ctx, &db.User{
		ID:   msg.SenderID,
		Name: msg.SenderName,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"object": "Registrar",
			"method": "Handle",
			"user":   msg.SenderID,
			"error":  err.Error(),
		}).Warn("cant upsert user")
	}
	return true, nil
}
