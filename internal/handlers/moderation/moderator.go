package moderation

import (
	"context"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/observability"
)

const systemActor = "system"

type (
	warningStore interface {
		UpsertWarning(ctx context.Context, warning *db.Warning) error
		DeleteWarning(ctx context.Context, userID, groupID string) error
	}

	bans interface {
		IsBanned(ctx context.Context, userID string) (bool, error)
		Ban(ctx context.Context, record *db.BanRecord) error
	}

	Moderator struct {
		conn     bot.Connector
		bans     bans
		detector *Detector
		ledger   *Ledger
		store    warningStore
		cfg      config.Moderation
		lang     string
	}
)

func NewModerator(conn bot.Connector, bans bans, detector *Detector, ledger *Ledger, store warningStore, cfg config.Moderation, lang string) *Moderator {
	return &Moderator{
		conn:     conn,
		bans:     bans,
		detector: detector,
		ledger:   ledger,
		store:    store,
		cfg:      cfg,
		lang:     lang,
	}
}

// Handle stops the handler chain for messages the moderator acted upon.
func (m *Moderator) Handle(ctx context.Context, msg *bot.InboundMessage) (bool, error) {
	return !m.Process(ctx, msg), nil
}

// Process reports whether the message was handled by moderation.
// Collaborator failures never punish the sender: the message passes through instead.
func (m *Moderator) Process(ctx context.Context, msg *bot.InboundMessage) bool {
	if msg == nil || !msg.IsGroup {
		return false
	}
	entry := m.getLogEntry().WithFields(log.Fields{
		"method": "Process",
		"group":  msg.GroupID,
		"user":   msg.SenderID,
	})

	banned, err := m.bans.IsBanned(ctx, msg.SenderID)
	if err != nil {
		entry.WithField("error", err.Error()).Error("cant check ban")
	}
	if banned {
		m.removeBanned(ctx, entry, msg)
		return true
	}

	kinds := m.detector.Detect(ctx, msg)
	if len(kinds) == 0 {
		return false
	}
	for _, kind := range kinds {
		observability.RecordViolation(string(kind))
	}
	if err := m.handleViolation(ctx, entry, msg, kinds); err != nil {
		entry.WithField("error", err.Error()).Error("cant handle violation")
		return false
	}
	return true
}

func (m *Moderator) removeBanned(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage) {
	err := m.conn.RemoveParticipant(ctx, msg.GroupID, msg.SenderID)
	observability.RecordEnforcement("remove-banned", err == nil)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant remove banned user")
		return
	}
	observability.Audit().Info("remove-banned",
		zap.String("group", msg.GroupID),
		zap.String("user", msg.SenderID),
	)
}

func (m *Moderator) handleViolation(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage, kinds []ViolationKind) error {
	reason := JoinReasons(kinds)
	count, maxReached := m.ledger.Escalate(msg.SenderID, msg.GroupID, reason)
	m.mirrorWarning(ctx, entry, msg, reason, count)

	notice := tool.ExecTemplate(i18n.Get("⚠️ Warning {{ .count }}/{{ .max }}: {{ .reason }}", m.lang), map[string]any{
		"count":  count,
		"max":    m.ledger.MaxWarnings(),
		"reason": reason,
	})
	if err := m.conn.SendMessage(ctx, msg.GroupID, bot.Payload{Text: notice, Mentions: []string{msg.SenderID}}); err != nil {
		return errors.WithMessage(err, "cant send warning")
	}
	observability.RecordEnforcement("warn", true)
	observability.Audit().Info("warn",
		zap.String("group", msg.GroupID),
		zap.String("user", msg.SenderID),
		zap.String("reason", reason),
		zap.Int("count", count),
	)

	switch {
	case !maxReached:
	case !m.cfg.AutoKick:
		m.clear(ctx, entry, msg)
	case m.ledger.ClaimEnforcement(msg.SenderID, msg.GroupID):
		m.enforce(ctx, entry, msg, reason)
	default:
		entry.Debug("enforcement already in progress")
	}

	m.deleteMessage(ctx, entry, msg)
	return nil
}

// enforce removes and bans the sender under a claim taken by the caller. The
// warning record is kept and the claim released when either step fails, so the
// next violation retries.
func (m *Moderator) enforce(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage, reason string) {
	if err := m.conn.RemoveParticipant(ctx, msg.GroupID, msg.SenderID); err != nil {
		observability.RecordEnforcement("kick", false)
		entry.WithField("error", err.Error()).Error("cant remove user")
		m.ledger.ReleaseEnforcement(msg.SenderID, msg.GroupID)
		return
	}
	observability.RecordEnforcement("kick", true)

	if err := m.bans.Ban(ctx, &db.BanRecord{
		UserID:   msg.SenderID,
		Reason:   reason,
		BannedBy: systemActor,
	}); err != nil {
		observability.RecordEnforcement("ban", false)
		entry.WithField("error", err.Error()).Error("cant persist ban")
		m.ledger.ReleaseEnforcement(msg.SenderID, msg.GroupID)
		return
	}
	observability.RecordEnforcement("ban", true)
	observability.Audit().Info("ban",
		zap.String("group", msg.GroupID),
		zap.String("user", msg.SenderID),
		zap.String("reason", reason),
		zap.String("by", systemActor),
	)

	notice := i18n.Get("⛔ Maximum warnings reached. User removed.", m.lang)
	if err := m.conn.SendMessage(ctx, msg.GroupID, bot.Payload{Text: notice}); err != nil {
		entry.WithField("error", err.Error()).Warn("cant send max warnings notice")
	}
	m.clear(ctx, entry, msg)
}

func (m *Moderator) clear(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage) {
	m.ledger.Clear(msg.SenderID, msg.GroupID)
	if err := m.store.DeleteWarning(ctx, msg.SenderID, msg.GroupID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant delete warning mirror")
	}
}

func (m *Moderator) mirrorWarning(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage, reason string, count int) {
	if err := m.store.UpsertWarning(ctx, &db.Warning{
		UserID:      msg.SenderID,
		GroupID:     msg.GroupID,
		Reason:      reason,
		Count:       count,
		LastWarning: m.ledger.Now(),
	}); err != nil {
		entry.WithField("error", err.Error()).Warn("cant mirror warning")
	}
}

func (m *Moderator) deleteMessage(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage) {
	key := msg.Key
	if key.ChatID == "" {
		key.ChatID = msg.GroupID
	}
	if key.MessageID == "" {
		key.MessageID = msg.ID
	}
	if err := m.conn.SendMessage(ctx, msg.GroupID, bot.Payload{Delete: &key}); err != nil {
		observability.RecordEnforcement("delete", false)
		entry.WithField("error", err.Error()).Warn("cant delete offending message")
		return
	}
	observability.RecordEnforcement("delete", true)
}

func (m *Moderator) getLogEntry() *log.Entry {
	return log.WithField("object", "Moderator")
}
