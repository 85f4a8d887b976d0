package permissions

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

type DenialKind string

const (
	DenialNone      DenialKind = ""
	DenialGroupOnly DenialKind = "group-only"
	DenialAdminOnly DenialKind = "admin-only"
	DenialOwnerOnly DenialKind = "owner-only"
	// DenialBanned is never answered; banned senders are ignored.
	DenialBanned DenialKind = "banned"
)

type (
	Requirements struct {
		RequiresGroup bool
		RequiresAdmin bool
		RequiresOwner bool
	}

	Decision struct {
		Allowed bool
		Denial  DenialKind
	}

	metadataFetcher interface {
		FetchGroupMetadata(ctx context.Context, groupID string) (*bot.GroupMetadata, error)
	}

	banChecker interface {
		IsBanned(ctx context.Context, userID string) (bool, error)
	}

	// Gate decides whether a sender may run a command.
	Gate struct {
		fetcher metadataFetcher
		bans    banChecker
		ownerID string
		lookups singleflight.Group
	}
)

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(kind DenialKind) Decision {
	return Decision{Denial: kind}
}

// NewGate builds a gate. bans may be nil when no ban list is kept.
func NewGate(fetcher metadataFetcher, bans banChecker, ownerID string) *Gate {
	return &Gate{
		fetcher: fetcher,
		bans:    bans,
		ownerID: strings.TrimSpace(ownerID),
	}
}

// Check denies banned senders first, in any chat, then evaluates group, admin
// and owner requirements in that order and stops at the first failure.
// Admin status is read live; a failed lookup denies.
func (g *Gate) Check(ctx context.Context, msg *bot.InboundMessage, req Requirements) Decision {
	if g.IsBanned(ctx, msg.SenderID) {
		return Deny(DenialBanned)
	}
	if req.RequiresGroup && !msg.IsGroup {
		return Deny(DenialGroupOnly)
	}
	if req.RequiresAdmin {
		if !msg.IsGroup {
			return Deny(DenialAdminOnly)
		}
		isAdmin, err := g.IsAdmin(ctx, msg.GroupID, msg.SenderID)
		if err != nil {
			log.WithFields(log.Fields{
				"object": "Gate",
				"method": "Check",
				"group":  msg.GroupID,
				"error":  err.Error(),
			}).Warn("cant fetch group metadata, denying")
			return Deny(DenialAdminOnly)
		}
		if !isAdmin {
			return Deny(DenialAdminOnly)
		}
	}
	if req.RequiresOwner && !g.IsOwner(msg.SenderID) {
		return Deny(DenialOwnerOnly)
	}
	return Allow()
}

// IsBanned reports a stored ban for the sender. A failed lookup is logged and
// lets the sender through, the same way group moderation treats it.
func (g *Gate) IsBanned(ctx context.Context, senderID string) bool {
	if g.bans == nil || senderID == "" {
		return false
	}
	banned, err := g.bans.IsBanned(ctx, senderID)
	if err != nil {
		log.WithFields(log.Fields{
			"object": "Gate",
			"method": "IsBanned",
			"user":   senderID,
			"error":  err.Error(),
		}).Warn("cant check ban")
		return false
	}
	return banned
}

// IsAdmin fetches the group participants; concurrent lookups for one group share a request.
// The shared fetch ignores the first caller's cancellation so one abandoned check
// does not deny the others.
func (g *Gate) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := g.lookups.Do(groupID, func() (any, error) {
		return g.fetcher.FetchGroupMetadata(shared, groupID)
	})
	if err != nil {
		return false, err
	}
	meta, _ := v.(*bot.GroupMetadata)
	return meta.IsAdmin(userID), nil
}

// IsOwner matches the configured owner number anywhere in the sender identifier.
func (g *Gate) IsOwner(senderID string) bool {
	return g.ownerID != "" && strings.Contains(senderID, g.ownerID)
}
