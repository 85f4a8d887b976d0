package bot

import (
	"context"
)

// Connector is the minimal messaging surface the pipeline needs.
type Connector interface {
	SendMessage(ctx context.Context, target string, payload Payload) error
	RemoveParticipant(ctx context.Context, groupID, userID string) error
	FetchGroupMetadata(ctx context.Context, groupID string) (*GroupMetadata, error)
}

// GroupAdministrator covers group settings changes used by admin commands.
type GroupAdministrator interface {
	SetGroupAnnouncement(ctx context.Context, groupID string, closed bool) error
	GroupInviteLink(ctx context.Context, groupID string) (string, error)
	RevokeGroupInvite(ctx context.Context, groupID string) (string, error)
	ListGroups(ctx context.Context) ([]string, error)
}

type Messenger interface {
	Connector
	GroupAdministrator
}

// Handler processes a message and reports whether the next handler should run.
type Handler interface {
	Handle(ctx context.Context, msg *InboundMessage) (proceed bool, err error)
}

type MembershipHandler interface {
	HandleMembership(ctx context.Context, ev *MembershipEvent) error
}

type HandlerFunc func(ctx context.Context, msg *InboundMessage) (bool, error)

func (f HandlerFunc) Handle(ctx context.Context, msg *InboundMessage) (bool, error) {
	return f(ctx, msg)
}
