package commands

import (
	"context"

	"github.com/iamwavecut/tool"
	"go.uber.org/zap"

	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/observability"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

func (reg *registry) groupCommand() *Command {
	return &Command{
		Name:         "group",
		Description:  i18n.Get("Manages group settings", reg.lang),
		Usage:        "group <open/close/link/revoke>",
		Category:     CategoryGroup,
		Requirements: permissions.Requirements{RequiresGroup: true, RequiresAdmin: true},
		Handler:      reg.group,
	}
}

func (reg *registry) group(ctx context.Context, req *Request) error {
	groupID := req.Msg.GroupID
	action, _ := req.Sub()
	switch action {
	case "":
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}group <open/close/link/revoke>", reg.lang))
	case "open", "close":
		closed := action == "close"
		if err := reg.Messenger.SetGroupAnnouncement(ctx, groupID, closed); err != nil {
			return err
		}
		observability.Audit().Info("group-"+action, zap.String("group", groupID), zap.String("by", req.Msg.SenderID))
		if closed {
			return req.Reply(ctx, i18n.Get("🔒 Group closed!", reg.lang))
		}
		return req.Reply(ctx, i18n.Get("🔓 Group opened!", reg.lang))
	case "link":
		link, err := reg.Messenger.GroupInviteLink(ctx, groupID)
		if err != nil {
			return err
		}
		return req.Reply(ctx, tool.ExecTemplate(i18n.Get("🔗 Group link:\n{{ .link }}", reg.lang), map[string]any{
			"link": link,
		}))
	case "revoke":
		if _, err := reg.Messenger.RevokeGroupInvite(ctx, groupID); err != nil {
			return err
		}
		observability.Audit().Info("group-revoke", zap.String("group", groupID), zap.String("by", req.Msg.SenderID))
		return req.Reply(ctx, i18n.Get("🔄 Group link revoked!", reg.lang))
	}
	return req.Reply(ctx, i18n.Get("❌ Invalid action! Use: open, close, link or revoke", reg.lang))
}
