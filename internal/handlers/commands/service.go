package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/shopkeeper/internal/commerce"
	"github.com/iamwavecut/shopkeeper/internal/db"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

func (reg *registry) serviceCommand() *Command {
	return &Command{
		Name:        "service",
		Description: i18n.Get("Manages services and bookings", reg.lang),
		Usage:       "service <add/list/book/cancel/schedule> [parameters]",
		Category:    CategorySales,
		Handler:     reg.service,
	}
}

func (reg *registry) service(ctx context.Context, req *Request) error {
	action, args := req.Sub()
	switch action {
	case "add":
		decision := reg.Gate.Check(ctx, req.Msg, permissions.Requirements{RequiresAdmin: true})
		if !decision.Allowed {
			return req.Reply(ctx, DenialText(decision.Denial, reg.lang))
		}
		return reg.serviceAdd(ctx, req, args)
	case "list":
		return reg.serviceList(ctx, req, args)
	case "book":
		return reg.serviceBook(ctx, req, args)
	case "cancel":
		return reg.serviceCancel(ctx, req, args)
	case "schedule":
		return reg.serviceSchedule(ctx, req, args)
	}
	return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}service <add/list/book/cancel/schedule> [parameters]", reg.lang))
}

func (reg *registry) serviceAdd(ctx context.Context, req *Request, args []string) error {
	if len(args) < 3 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}service add <name> <price> <duration_minutes> [description | category]", reg.lang))
	}
	price, err := commerce.ParseAmount(args[1])
	if err != nil {
		return sk.UserInput(i18n.Get("Price must be greater than zero.", reg.lang))
	}
	duration, err := strconv.Atoi(args[2])
	if err != nil {
		return sk.UserInput(i18n.Get("Duration must be a positive number of minutes.", reg.lang))
	}
	description, category := splitDetails(args[3:])
	service, err := reg.Bookings.AddService(ctx, args[0], price, duration, description, category)
	if err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("✅ Service added! ID: {{ .id }}", reg.lang), map[string]any{
		"id": service.ID,
	}))
}

func (reg *registry) serviceList(ctx context.Context, req *Request, args []string) error {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}
	services, err := reg.Bookings.ListServices(ctx, category)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return req.Reply(ctx, i18n.Get("❌ No services found.", reg.lang))
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("📋 *Service list*", reg.lang))
	sb.WriteString("\n\n")
	for _, s := range services {
		sb.WriteString(tool.ExecTemplate(i18n.Get("*{{ .name }}* (ID: {{ .id }})\n💰 Price: {{ .price }}\n⏱️ Duration: {{ .duration }} minutes", reg.lang), map[string]any{
			"name":     s.Name,
			"id":       s.ID,
			"price":    reg.Sales.Money(s.Price),
			"duration": s.DurationMinutes,
		}))
		sb.WriteString("\n")
		if s.Description != "" {
			sb.WriteString("📝 " + s.Description + "\n")
		}
		if s.Category != "" {
			sb.WriteString("🏷️ " + s.Category + "\n")
		}
		sb.WriteString("\n")
	}
	return req.Reply(ctx, strings.TrimSpace(sb.String()))
}

func (reg *registry) serviceBook(ctx context.Context, req *Request, args []string) error {
	if len(args) < 3 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}service book <service_id> <YYYY-MM-DD> <HH:MM> [notes]", reg.lang))
	}
	booking, service, err := reg.Bookings.Book(ctx, req.Msg.SenderID, args[0], args[1], args[2], strings.Join(args[3:], " "))
	if err != nil {
		return err
	}
	return req.Reply(ctx, reg.bookingSummary(booking, service.Name))
}

func (reg *registry) serviceCancel(ctx context.Context, req *Request, args []string) error {
	if len(args) != 1 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}service cancel <booking_id>", reg.lang))
	}
	if err := reg.Bookings.Cancel(ctx, req.Msg.SenderID, args[0]); err != nil {
		return err
	}
	return req.Reply(ctx, i18n.Get("✅ Booking cancelled!", reg.lang))
}

// serviceSchedule lists the sender's bookings, or free slots when a service and a date are given.
func (reg *registry) serviceSchedule(ctx context.Context, req *Request, args []string) error {
	switch len(args) {
	case 0:
		bookings, err := reg.Bookings.UserBookings(ctx, req.Msg.SenderID)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return req.Reply(ctx, i18n.Get("📅 You have no bookings.", reg.lang))
		}
		lines := []string{i18n.Get("📅 *Your bookings*", reg.lang)}
		for _, b := range bookings {
			lines = append(lines, reg.bookingSummary(b, b.ServiceID))
		}
		return req.Reply(ctx, strings.Join(lines, "\n\n"))
	case 2:
		slots, _, err := reg.Bookings.AvailableSlots(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return req.Reply(ctx, i18n.Get("❌ There are no free slots on this date.", reg.lang))
		}
		return req.Reply(ctx, i18n.Get("🕒 *Available slots*", reg.lang)+"\n\n"+strings.Join(slots, "\n"))
	}
	return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}service schedule [<service_id> <YYYY-MM-DD>]", reg.lang))
}

func (reg *registry) bookingSummary(b *db.Booking, service string) string {
	return tool.ExecTemplate(i18n.Get("🗓️ Booking {{ .id }}\nService: {{ .service }}\nDate: {{ .date }} {{ .time }}\nStatus: {{ .status }}", reg.lang), map[string]any{
		"id":      b.ID,
		"service": service,
		"date":    b.Date,
		"time":    b.Time,
		"status":  b.Status,
	})
}
