package telegram

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

// kickDuration is how long a removed participant stays banned on the Telegram side.
// The sticky ban lives in the store; this only has to outlast the removal.
const kickDuration = time.Minute

type botAPI interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChat(config api.ChatInfoConfig) (api.ChatFullInfo, error)
	GetChatAdministrators(config api.ChatAdministratorsConfig) ([]api.ChatMember, error)
	GetInviteLink(config api.ChatInviteLinkConfig) (string, error)
}

// Connector implements bot.Messenger on top of the Telegram Bot API.
type Connector struct {
	api    botAPI
	groups *xsync.MapOf[string, struct{}]
	now    func() time.Time
}

func NewConnector(botAPI botAPI) *Connector {
	return &Connector{
		api:    botAPI,
		groups: xsync.NewMapOf[string, struct{}](),
		now:    time.Now,
	}
}

// Track remembers a group the bot has seen traffic in.
func (c *Connector) Track(groupID string) {
	if groupID != "" {
		c.groups.Store(groupID, struct{}{})
	}
}

// Forget drops a group, e.g. after the bot was removed from it.
func (c *Connector) Forget(groupID string) {
	c.groups.Delete(groupID)
}

func (c *Connector) SendMessage(ctx context.Context, target string, payload bot.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseID(target)
	if err != nil {
		return err
	}
	if payload.Delete != nil {
		return c.deleteMessage(*payload.Delete)
	}
	msg := api.NewMessage(chatID, payload.Text)
	msg.DisableNotification = len(payload.Mentions) == 0
	if _, err := c.api.Send(msg); err != nil {
		return errors.WithMessage(err, "cant send message")
	}
	return nil
}

func (c *Connector) deleteMessage(key bot.MessageKey) error {
	chatID, err := parseID(key.ChatID)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(key.MessageID)
	if err != nil {
		return errors.Wrapf(err, "invalid message id %q", key.MessageID)
	}
	if _, err := c.api.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

func (c *Connector) RemoveParticipant(ctx context.Context, groupID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	if _, err := c.api.Request(api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: uid,
		},
		UntilDate:      c.now().Add(kickDuration).Unix(),
		RevokeMessages: false,
	}); err != nil {
		if strings.Contains(err.Error(), "not enough rights") {
			return errors.New("not enough rights to remove participant")
		}
		return errors.WithMessage(err, "cant kick")
	}
	return nil
}

// FetchGroupMetadata lists the group administrators; regular members are not enumerable on Telegram.
func (c *Connector) FetchGroupMetadata(ctx context.Context, groupID string) (*bot.GroupMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chatID, err := parseID(groupID)
	if err != nil {
		return nil, err
	}
	chatConfig := api.ChatConfig{ChatID: chatID}
	info, err := c.api.GetChat(api.ChatInfoConfig{ChatConfig: chatConfig})
	if err != nil {
		return nil, errors.WithMessage(err, "cant get chat")
	}
	admins, err := c.api.GetChatAdministrators(api.ChatAdministratorsConfig{ChatConfig: chatConfig})
	if err != nil {
		return nil, errors.WithMessage(err, "cant get chat administrators")
	}

	meta := &bot.GroupMetadata{
		ID:      groupID,
		Subject: info.Title,
	}
	for _, member := range admins {
		if member.User == nil {
			continue
		}
		meta.Participants = append(meta.Participants, bot.Participant{
			ID:      formatID(member.User.ID),
			Name:    userName(member.User),
			IsAdmin: member.IsAdministrator() || member.IsCreator(),
		})
	}
	return meta, nil
}

// SetGroupAnnouncement closes the group to non-admin messages, or opens it again.
func (c *Connector) SetGroupAnnouncement(ctx context.Context, groupID string, closed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseID(groupID)
	if err != nil {
		return err
	}
	open := !closed
	if _, err := c.api.Request(api.SetChatPermissionsConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
		Permissions: &api.ChatPermissions{
			CanSendMessages:       open,
			CanSendOtherMessages:  open,
			CanAddWebPagePreviews: open,
		},
	}); err != nil {
		return errors.WithMessage(err, "cant set chat permissions")
	}
	return nil
}

// GroupInviteLink returns the primary invite link, creating one when the group has none.
func (c *Connector) GroupInviteLink(ctx context.Context, groupID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chatID, err := parseID(groupID)
	if err != nil {
		return "", err
	}
	info, err := c.api.GetChat(api.ChatInfoConfig{ChatConfig: api.ChatConfig{ChatID: chatID}})
	if err == nil && info.InviteLink != "" {
		return info.InviteLink, nil
	}
	return c.exportInviteLink(chatID)
}

// RevokeGroupInvite replaces the primary invite link; the previous one stops working.
func (c *Connector) RevokeGroupInvite(ctx context.Context, groupID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chatID, err := parseID(groupID)
	if err != nil {
		return "", err
	}
	return c.exportInviteLink(chatID)
}

func (c *Connector) exportInviteLink(chatID int64) (string, error) {
	link, err := c.api.GetInviteLink(api.ChatInviteLinkConfig{ChatConfig: api.ChatConfig{ChatID: chatID}})
	if err != nil {
		return "", errors.WithMessage(err, "cant export invite link")
	}
	return link, nil
}

// ListGroups returns the groups seen since start, sorted.
func (c *Connector) ListGroups(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groups := make([]string, 0, c.groups.Size())
	c.groups.Range(func(id string, _ struct{}) bool {
		groups = append(groups, id)
		return true
	})
	slices.Sort(groups)
	return groups, nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid telegram id %q", id)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func userName(u *api.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.UserName != "" {
		name = "@" + u.UserName
	}
	return name
}
