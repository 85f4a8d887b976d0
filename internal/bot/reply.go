package bot

import (
	"context"

	"github.com/pkg/errors"
)

// Reply sends text back to the chat the message came from.
func Reply(ctx context.Context, conn Connector, msg *InboundMessage, text string, mentions ...string) error {
	if msg == nil {
		return errors.New("message is nil")
	}
	err := conn.SendMessage(ctx, msg.ReplyTarget(), Payload{Text: text, Mentions: mentions})
	return errors.WithMessage(err, "cant reply")
}
