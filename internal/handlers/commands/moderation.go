package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/db"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/observability"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

func (reg *registry) banCommand() *Command {
	return &Command{
		Name:         "ban",
		Description:  i18n.Get("Bans a user from the group", reg.lang),
		Usage:        "ban @user [reason]",
		Category:     CategoryAdmin,
		Requirements: permissions.Requirements{RequiresGroup: true, RequiresAdmin: true},
		Handler:      reg.ban,
	}
}

// ban removes the first mentioned user and records a sticky ban.
func (reg *registry) ban(ctx context.Context, req *Request) error {
	if len(req.Msg.MentionedIDs) == 0 {
		return req.Reply(ctx, i18n.Get("Mention the user you want to ban!", reg.lang))
	}
	target := req.Msg.MentionedIDs[0]
	// A reply ban carries the mention implicitly, so the reason may start at the first argument.
	reason := req.Rest(0)
	if len(req.Args) > 0 && strings.HasPrefix(req.Args[0], "@") {
		reason = req.Rest(1)
	}
	if reason == "" {
		reason = i18n.Get("No reason given", reg.lang)
	}
	entry := log.WithFields(log.Fields{
		"object": "BanCommand",
		"group":  req.Msg.GroupID,
		"target": target,
	})

	if err := reg.Bans.Ban(ctx, &db.BanRecord{
		UserID:   target,
		Reason:   reason,
		BannedBy: req.Msg.SenderID,
	}); err != nil {
		observability.RecordEnforcement("ban", false)
		entry.WithField("error", err.Error()).Error("cant persist ban")
		return req.Reply(ctx, i18n.Get("❌ Error banning user!", reg.lang))
	}
	observability.RecordEnforcement("ban", true)
	if err := reg.Messenger.RemoveParticipant(ctx, req.Msg.GroupID, target); err != nil {
		observability.RecordEnforcement("kick", false)
		entry.WithField("error", err.Error()).Error("cant remove user")
		return req.Reply(ctx, i18n.Get("❌ Error banning user!", reg.lang))
	}
	observability.RecordEnforcement("kick", true)
	observability.Audit().Info("ban",
		zap.String("group", req.Msg.GroupID),
		zap.String("user", target),
		zap.String("reason", reason),
		zap.String("by", req.Msg.SenderID),
	)

	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("⛔ User @{{ .user }} was banned!\nReason: {{ .reason }}", reg.lang), map[string]any{
		"user":   displayID(target),
		"reason": reason,
	}), target)
}

// displayID is the local part of a sender identifier.
func displayID(id string) string {
	local, _, _ := strings.Cut(id, "@")
	return local
}

func onOff(v bool, lang string) string {
	if v {
		return i18n.Get("on", lang)
	}
	return i18n.Get("off", lang)
}

func (reg *registry) adminCommand() *Command {
	return &Command{
		Name:         "admin",
		Description:  i18n.Get("Administrative commands", reg.lang),
		Usage:        "admin <stats/config/reset/broadcast/warnings> [parameters]",
		Category:     CategoryAdmin,
		Requirements: permissions.Requirements{RequiresOwner: true},
		Handler:      reg.admin,
	}
}

func (reg *registry) admin(ctx context.Context, req *Request) error {
	action, args := req.Sub()
	switch action {
	case "stats":
		return reg.adminStats(ctx, req)
	case "config":
		return reg.adminConfig(ctx, req)
	case "reset":
		return reg.adminReset(ctx, req)
	case "broadcast":
		return reg.broadcast(ctx, req, strings.Join(args, " "))
	case "warnings":
		return reg.adminWarnings(ctx, req)
	}
	return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}admin <stats/config/reset/broadcast/warnings> [parameters]", reg.lang))
}

func (reg *registry) adminStats(ctx context.Context, req *Request) error {
	stats, err := reg.Store.GetStats(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"object": "AdminCommand",
			"method": "adminStats",
			"error":  err.Error(),
		}).Error("cant get stats")
		return req.Reply(ctx, i18n.Get("❌ Error getting statistics!", reg.lang))
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("📊 *System statistics*\n\n👥 Users: {{ .users }}\n📦 Products: {{ .products }}\n🛍️ Orders: {{ .orders }}\n📋 Services: {{ .services }}\n📅 Bookings: {{ .bookings }}\n⛔ Banned: {{ .banned }}", reg.lang), map[string]any{
		"users":    stats.Users,
		"products": stats.Products,
		"orders":   stats.Orders,
		"services": stats.Services,
		"bookings": stats.Bookings,
		"banned":   stats.Banned,
	}))
}

func (reg *registry) adminConfig(ctx context.Context, req *Request) error {
	m := reg.Config.Moderation
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("⚙️ *Moderation settings*\n\nAnti-link: {{ .link }}\nAnti-spam: {{ .spam }}\nAnti-fake: {{ .fake }}\nAnti-toxic: {{ .toxic }}\nAnti-virtex: {{ .virtex }}\nAuto kick: {{ .kick }}\nMax warnings: {{ .max }}\nWelcome: {{ .welcome }}\nGoodbye: {{ .goodbye }}", reg.lang), map[string]any{
		"link":    onOff(m.AntiLink, reg.lang),
		"spam":    onOff(m.AntiSpam, reg.lang),
		"fake":    onOff(m.AntiFake, reg.lang),
		"toxic":   onOff(m.AntiToxic, reg.lang),
		"virtex":  onOff(m.AntiVirtex, reg.lang),
		"kick":    onOff(m.AutoKick, reg.lang),
		"max":     strconv.Itoa(m.MaxWarnings),
		"welcome": onOff(m.Welcome, reg.lang),
		"goodbye": onOff(m.Goodbye, reg.lang),
	}))
}

// adminWarnings reads the persisted warning mirror for the first mentioned user of the group.
func (reg *registry) adminWarnings(ctx context.Context, req *Request) error {
	if !req.Msg.IsGroup || len(req.Msg.MentionedIDs) == 0 {
		return sk.UserInput(i18n.Get("Mention a user in a group to see their warnings!", reg.lang))
	}
	target := req.Msg.MentionedIDs[0]
	warning, err := reg.Store.GetWarning(ctx, target, req.Msg.GroupID)
	if err != nil {
		return sk.Collaborator("get warning", err)
	}
	if warning == nil {
		return req.Reply(ctx, tool.ExecTemplate(i18n.Get("✅ @{{ .user }} has no warnings.", reg.lang), map[string]any{
			"user": displayID(target),
		}), target)
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("⚠️ @{{ .user }} has {{ .count }}/{{ .max }} warnings.\nLast reason: {{ .reason }}\nLast warning: {{ .at }}", reg.lang), map[string]any{
		"user":   displayID(target),
		"count":  warning.Count,
		"max":    reg.Config.Moderation.MaxWarnings,
		"reason": warning.Reason,
		"at":     warning.LastWarning.Local().Format("02/01/2006 15:04"),
	}), target)
}

// adminReset drops warnings and spam windows. Bans stay.
func (reg *registry) adminReset(ctx context.Context, req *Request) error {
	reg.Ledger.Reset()
	if err := reg.Store.DeleteAllWarnings(ctx); err != nil {
		log.WithFields(log.Fields{
			"object": "AdminCommand",
			"method": "adminReset",
			"error":  err.Error(),
		}).Warn("cant clear warning mirror")
	}
	observability.Audit().Info("reset", zap.String("by", req.Msg.SenderID))
	return req.Reply(ctx, i18n.Get("✅ Warnings and spam counters were reset.", reg.lang))
}

// broadcast sends text to every known group, pacing sends with the limiter.
// A failed send is logged and the loop goes on.
func (reg *registry) broadcast(ctx context.Context, req *Request, text string) error {
	if strings.TrimSpace(text) == "" {
		return req.Reply(ctx, i18n.Get("Provide a message to broadcast!", reg.lang))
	}
	entry := log.WithFields(log.Fields{
		"object": "AdminCommand",
		"method": "broadcast",
	})
	groups, err := reg.Messenger.ListGroups(ctx)
	if err != nil {
		return err
	}

	body := i18n.Get("📢 *Official announcement*", reg.lang) + "\n\n" + text
	sent := 0
	for _, group := range groups {
		if err := reg.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := reg.Messenger.SendMessage(ctx, group, bot.Payload{Text: body}); err != nil {
			entry.WithFields(log.Fields{
				"group": group,
				"error": err.Error(),
			}).Warn("cant broadcast to group")
			continue
		}
		sent++
	}
	observability.Audit().Info("broadcast",
		zap.String("by", req.Msg.SenderID),
		zap.Int("groups", len(groups)),
		zap.Int("sent", sent),
	)
	return req.Reply(ctx, i18n.Get("✅ Message broadcast to all groups!", reg.lang))
}
