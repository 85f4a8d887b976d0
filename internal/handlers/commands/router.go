package commands

import (
	"context"
	"slices"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/infra"
	"github.com/iamwavecut/shopkeeper/internal/observability"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

const (
	CategoryAdmin   = "admin"
	CategoryGroup   = "group"
	CategorySales   = "sales"
	CategoryGeneral = "general"
)

type (
	// Request is a single parsed command invocation.
	Request struct {
		Msg  *bot.InboundMessage
		Name string
		Args []string

		conn bot.Connector
	}

	HandlerFunc func(ctx context.Context, req *Request) error

	Command struct {
		Name        string
		Description string
		Usage       string
		Category    string
		permissions.Requirements
		Handler HandlerFunc
	}

	gate interface {
		Check(ctx context.Context, msg *bot.InboundMessage, req permissions.Requirements) permissions.Decision
	}

	Router struct {
		conn     bot.Connector
		gate     gate
		prefix   string
		lang     string
		commands map[string]*Command
		ordered  []*Command
	}
)

// NewRouter registers commands once. Duplicate or empty names are a configuration error.
func NewRouter(conn bot.Connector, gate gate, prefix, lang string, commands ...*Command) (*Router, error) {
	if prefix == "" {
		return nil, sk.Configuration("command prefix is empty")
	}
	r := &Router{
		conn:     conn,
		gate:     gate,
		prefix:   prefix,
		lang:     lang,
		commands: make(map[string]*Command, len(commands)),
	}
	for _, cmd := range commands {
		if err := r.register(cmd); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Router) register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil {
		return sk.Configuration("command without name or handler")
	}
	if strings.ContainsAny(cmd.Name, " \t\n") {
		return sk.Configuration("command name %q contains whitespace", cmd.Name)
	}
	if _, ok := r.commands[cmd.Name]; ok {
		return sk.Configuration("duplicate command %q", cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	r.ordered = append(r.ordered, cmd)
	return nil
}

func (r *Router) Prefix() string {
	return r.prefix
}

func (r *Router) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns the registered commands sorted by name.
func (r *Router) Commands() []*Command {
	res := slices.Clone(r.ordered)
	slices.SortFunc(res, func(a, b *Command) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res
}

// Parse splits prefixed text into the command name and its arguments.
func (r *Router) Parse(text string) (string, []string, bool) {
	rest, ok := strings.CutPrefix(text, r.prefix)
	if !ok {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// Handle consumes prefixed messages; anything else goes on to the next handler.
func (r *Router) Handle(ctx context.Context, msg *bot.InboundMessage) (bool, error) {
	if msg == nil || !msg.HasPrefix(r.prefix) {
		return true, nil
	}
	r.Dispatch(ctx, msg)
	return false, nil
}

// Dispatch runs the command named in msg. Unknown commands are ignored silently.
func (r *Router) Dispatch(ctx context.Context, msg *bot.InboundMessage) {
	name, args, ok := r.Parse(msg.Text)
	if !ok {
		return
	}
	cmd, ok := r.commands[name]
	if !ok {
		return
	}
	entry := r.getLogEntry().WithFields(log.Fields{
		"method":  "Dispatch",
		"command": name,
		"chat":    msg.ReplyTarget(),
		"user":    msg.SenderID,
	})

	if decision := r.gate.Check(ctx, msg, cmd.Requirements); !decision.Allowed {
		if decision.Denial == permissions.DenialBanned {
			observability.RecordCommand(name, "banned")
			entry.Debug("ignoring banned sender")
			return
		}
		observability.RecordCommand(name, "denied")
		entry.WithField("denial", decision.Denial).Debug("command denied")
		r.reply(ctx, entry, msg, DenialText(decision.Denial, r.lang))
		return
	}

	err := r.invoke(ctx, entry, cmd, &Request{Msg: msg, Name: name, Args: args, conn: r.conn})
	if err == nil {
		observability.RecordCommand(name, "ok")
		return
	}
	if uie, ok := sk.AsUserInput(err); ok {
		observability.RecordCommand(name, "rejected")
		r.reply(ctx, entry, msg, uie.Message)
		return
	}
	observability.RecordCommand(name, "error")
	entry.WithField("error", err.Error()).Error("command failed")
	r.reply(ctx, entry, msg, i18n.Get("❌ Error executing command.", r.lang))
}

// Deny answers with the fixed text for a permission denial.
func (r *Router) Deny(ctx context.Context, msg *bot.InboundMessage, kind permissions.DenialKind) {
	r.reply(ctx, r.getLogEntry().WithField("method", "Deny"), msg, DenialText(kind, r.lang))
}

func (r *Router) invoke(ctx context.Context, entry *log.Entry, cmd *Command, req *Request) (err error) {
	defer infra.Recover(entry, "command "+cmd.Name, func(p any) {
		err = errors.Errorf("command panicked: %v", p)
	})
	return cmd.Handler(ctx, req)
}

func (r *Router) reply(ctx context.Context, entry *log.Entry, msg *bot.InboundMessage, text string) {
	if err := bot.Reply(ctx, r.conn, msg, text); err != nil {
		entry.WithField("error", err.Error()).Warn("cant reply")
	}
}

func (r *Router) getLogEntry() *log.Entry {
	return log.WithField("object", "CommandRouter")
}

func DenialText(kind permissions.DenialKind, lang string) string {
	switch kind {
	case permissions.DenialGroupOnly:
		return i18n.Get("This command can only be used in groups.", lang)
	case permissions.DenialOwnerOnly:
		return i18n.Get("This command is for the bot owner only.", lang)
	default:
		return i18n.Get("This command is for administrators only.", lang)
	}
}

// Reply answers in the chat the command came from.
func (req *Request) Reply(ctx context.Context, text string, mentions ...string) error {
	return bot.Reply(ctx, req.conn, req.Msg, text, mentions...)
}

// Rest joins the arguments from index i on.
func (req *Request) Rest(i int) string {
	if i >= len(req.Args) {
		return ""
	}
	return strings.Join(req.Args[i:], " ")
}

// Sub returns the lower-cased first argument and the remaining ones.
func (req *Request) Sub() (string, []string) {
	if len(req.Args) == 0 {
		return "", nil
	}
	return strings.ToLower(req.Args[0]), req.Args[1:]
}
