package telegram

import (
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

const (
	chatTypeGroup      = "group"
	chatTypeSupergroup = "supergroup"

	statusCreator       = "creator"
	statusAdministrator = "administrator"
	statusMember        = "member"
	statusRestricted    = "restricted"
)

func isGroupChat(chat *api.Chat) bool {
	return chat != nil && (chat.Type == chatTypeGroup || chat.Type == chatTypeSupergroup)
}

// toEvent converts an update into a pipeline event. Updates the pipeline has no use for are dropped.
func toEvent(u *api.Update) (bot.Event, bool) {
	if u == nil {
		return bot.Event{}, false
	}
	switch {
	case u.Message != nil:
		msg := u.Message
		if msg.NewChatMembers != nil || msg.LeftChatMember != nil {
			return bot.Event{}, false
		}
		inbound := toInboundMessage(msg, u.FromChat(), u.SentFrom())
		if inbound == nil {
			return bot.Event{}, false
		}
		return bot.Event{Message: inbound}, true
	case u.ChatMember != nil:
		ev := toMembershipEvent(u.ChatMember)
		if ev == nil {
			return bot.Event{}, false
		}
		return bot.Event{Membership: ev}, true
	}
	return bot.Event{}, false
}

func toInboundMessage(msg *api.Message, chat *api.Chat, from *api.User) *bot.InboundMessage {
	if msg == nil || chat == nil || from == nil {
		return nil
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	chatID := formatID(chat.ID)
	messageID := formatID(int64(msg.MessageID))
	inbound := &bot.InboundMessage{
		ID:         messageID,
		SenderID:   formatID(from.ID),
		SenderName: userName(from),
		IsGroup:    isGroupChat(chat),
		Text:       text,
		Timestamp:  time.Unix(int64(msg.Date), 0),
		Key: bot.MessageKey{
			ChatID:    chatID,
			MessageID: messageID,
		},
	}
	if inbound.IsGroup {
		inbound.GroupID = chatID
	}

	seen := map[string]bool{}
	mention := func(u *api.User) {
		if u == nil || u.IsBot {
			return
		}
		id := formatID(u.ID)
		if !seen[id] {
			seen[id] = true
			inbound.MentionedIDs = append(inbound.MentionedIDs, id)
		}
	}
	for _, entity := range msg.Entities {
		if entity.Type == "text_mention" {
			mention(entity.User)
		}
	}
	if msg.ReplyToMessage != nil {
		mention(msg.ReplyToMessage.From)
	}
	return inbound
}

// toMembershipEvent maps a member status transition onto add, remove, promote or demote.
func toMembershipEvent(cm *api.ChatMemberUpdated) *bot.MembershipEvent {
	if cm == nil || cm.NewChatMember.User == nil {
		return nil
	}
	action, ok := membershipAction(cm.OldChatMember.Status, cm.NewChatMember.Status)
	if !ok {
		return nil
	}
	user := cm.NewChatMember.User
	return &bot.MembershipEvent{
		GroupID: formatID(cm.Chat.ID),
		Action:  action,
		Participants: []bot.Participant{{
			ID:      formatID(user.ID),
			Name:    userName(user),
			IsAdmin: cm.NewChatMember.Status == statusAdministrator || cm.NewChatMember.Status == statusCreator,
		}},
		Timestamp: time.Unix(int64(cm.Date), 0),
	}
}

func membershipAction(oldStatus, newStatus string) (bot.MembershipAction, bool) {
	present := func(status string) bool {
		switch status {
		case statusCreator, statusAdministrator, statusMember, statusRestricted:
			return true
		}
		return false
	}
	switch {
	case !present(oldStatus) && present(newStatus):
		return bot.MembershipAdd, true
	case present(oldStatus) && !present(newStatus):
		return bot.MembershipRemove, true
	case oldStatus != statusAdministrator && newStatus == statusAdministrator:
		return bot.MembershipPromote, true
	case oldStatus == statusAdministrator && newStatus != statusAdministrator && newStatus != statusCreator:
		return bot.MembershipDemote, true
	}
	return "", false
}
