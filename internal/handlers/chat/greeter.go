package chat

import (
	"context"
	"strings"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

// Greeter announces joins, leaves and role changes, one notice per participant.
type Greeter struct {
	conn bot.Connector
	cfg  config.Moderation
	lang string
}

func NewGreeter(conn bot.Connector, cfg config.Moderation, lang string) *Greeter {
	return &Greeter{
		conn: conn,
		cfg:  cfg,
		lang: lang,
	}
}

func (g *Greeter) HandleMembership(ctx context.Context, ev *bot.MembershipEvent) error {
	if ev == nil || ev.GroupID == "" {
		return nil
	}
	entry := g.getLogEntry().WithFields(log.Fields{
		"method": "HandleMembership",
		"group":  ev.GroupID,
		"action": ev.Action,
	})

	var render func(p bot.Participant) string
	switch ev.Action {
	case bot.MembershipAdd:
		if !g.cfg.Welcome {
			return nil
		}
		subject := g.groupSubject(ctx, entry, ev.GroupID)
		render = func(p bot.Participant) string {
			return tool.ExecTemplate(i18n.Get("Welcome to the group {{ .group }}!\n{{ .member }}", g.lang), map[string]any{
				"group":  subject,
				"member": MemberName(p),
			})
		}
	case bot.MembershipRemove:
		if !g.cfg.Goodbye {
			return nil
		}
		render = func(p bot.Participant) string {
			return tool.ExecTemplate(i18n.Get("See you later, {{ .member }}!", g.lang), map[string]any{
				"member": MemberName(p),
			})
		}
	case bot.MembershipPromote, bot.MembershipDemote:
		if !g.cfg.RoleChange {
			return nil
		}
		action := i18n.Get("promoted to admin", g.lang)
		if ev.Action == bot.MembershipDemote {
			action = i18n.Get("removed from admins", g.lang)
		}
		render = func(p bot.Participant) string {
			return tool.ExecTemplate(i18n.Get("👑 {{ .member }} was {{ .action }}.", g.lang), map[string]any{
				"member": MemberName(p),
				"action": action,
			})
		}
	default:
		entry.Debug("unknown membership action")
		return nil
	}

	var firstErr error
	for _, p := range ev.Participants {
		err := g.conn.SendMessage(ctx, ev.GroupID, bot.Payload{Text: render(p), Mentions: []string{p.ID}})
		if err != nil {
			entry.WithFields(log.Fields{
				"user":  p.ID,
				"error": err.Error(),
			}).Warn("cant send membership notice")
			if firstErr == nil {
				firstErr = errors.WithMessage(err, "cant send membership notice")
			}
		}
	}
	return firstErr
}

func (g *Greeter) groupSubject(ctx context.Context, entry *log.Entry, groupID string) string {
	meta, err := g.conn.FetchGroupMetadata(ctx, groupID)
	if err != nil {
		entry.WithField("error", err.Error()).Debug("cant fetch group metadata")
		return groupID
	}
	if meta == nil || meta.Subject == "" {
		return groupID
	}
	return meta.Subject
}

// MemberName is the display name of a participant, or @ plus the local part of its ID.
func MemberName(p bot.Participant) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.ID, "@")
	return "@" + local
}

func (g *Greeter) getLogEntry() *log.Entry {
	return log.WithField("object", "Greeter")
}
