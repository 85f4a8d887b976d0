package commands

import (
	"context"
	"strings"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

func (reg *registry) helpCommand() *Command {
	return &Command{
		Name:        "help",
		Description: i18n.Get("Shows the list of available commands", reg.lang),
		Usage:       "help [command]",
		Category:    CategoryGeneral,
		Handler:     reg.help,
	}
}

func (reg *registry) help(ctx context.Context, req *Request) error {
	prefix := reg.router.Prefix()
	if len(req.Args) > 0 {
		if cmd, ok := reg.router.Lookup(strings.TrimPrefix(req.Args[0], prefix)); ok {
			return req.Reply(ctx, tool.ExecTemplate(i18n.Get("*{{ .name }}*\n📝 Description: {{ .description }}\n🔧 Usage: {{ .usage }}", reg.lang), map[string]any{
				"name":        prefix + cmd.Name,
				"description": cmd.Description,
				"usage":       prefix + cmd.Usage,
			}))
		}
	}

	sections := []struct {
		category string
		title    string
	}{
		{CategoryAdmin, i18n.Get("👑 Admin", reg.lang)},
		{CategoryGroup, i18n.Get("👥 Group", reg.lang)},
		{CategorySales, i18n.Get("🛒 Sales", reg.lang)},
		{CategoryGeneral, i18n.Get("🔧 General", reg.lang)},
	}
	var sb strings.Builder
	sb.WriteString(i18n.Get("📜 *Command list*", reg.lang))
	sb.WriteString("\n\n")
	for _, section := range sections {
		var lines []string
		for _, cmd := range reg.router.Commands() {
			if cmd.Category == section.category {
				lines = append(lines, prefix+cmd.Name+" - "+cmd.Description)
			}
		}
		if len(lines) == 0 {
			continue
		}
		sb.WriteString(section.title + ":\n")
		sb.WriteString(strings.Join(lines, "\n"))
		sb.WriteString("\n\n")
	}
	sb.WriteString(tool.ExecTemplate(i18n.Get("Use {{ .prefix }}help [command] for details about a specific command.", reg.lang), map[string]any{
		"prefix": prefix,
	}))
	return req.Reply(ctx, sb.String())
}

func (reg *registry) pingCommand() *Command {
	return &Command{
		Name:        "ping",
		Description: i18n.Get("Checks whether the bot is online", reg.lang),
		Usage:       "ping",
		Category:    CategoryGeneral,
		Handler:     reg.ping,
	}
}

func (reg *registry) ping(ctx context.Context, req *Request) error {
	start := reg.Now()
	if err := req.Reply(ctx, i18n.Get("🏓 Pong! The bot is online.", reg.lang)); err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("Latency: {{ .ms }}ms", reg.lang), map[string]any{
		"ms": reg.Now().Sub(start).Milliseconds(),
	}))
}
