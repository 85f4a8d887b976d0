package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/shopkeeper/internal/infra"
	"github.com/iamwavecut/shopkeeper/internal/observability"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type (
	// NamedHandler binds a handler to the name used in the enabled handlers setting.
	NamedHandler struct {
		Name    string
		Handler Handler
	}

	UpdateProcessor struct {
		handlers           []Handler
		membershipHandlers []MembershipHandler
		now                func() time.Time
	}
)

// NewUpdateProcessor keeps the handlers listed in enabled, in the order they were given.
func NewUpdateProcessor(enabled []string, handlers []NamedHandler, membershipHandlers ...MembershipHandler) *UpdateProcessor {
	entry := getLogEntry().WithField("method", "NewUpdateProcessor")
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}

	enabledHandlers := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h.Handler == nil {
			entry.Warnf("no handler instance: %s", h.Name)
			continue
		}
		if !allowed[h.Name] {
			entry.Debugf("handler disabled: %s", h.Name)
			continue
		}
		enabledHandlers = append(enabledHandlers, h.Handler)
	}

	return &UpdateProcessor{
		handlers:           enabledHandlers,
		membershipHandlers: membershipHandlers,
		now:                time.Now,
	}
}

// Process runs one event through the handler chain. A panic is contained to the event.
func (up *UpdateProcessor) Process(ctx context.Context, ev Event) (err error) {
	entry := getLogEntry().WithField("method", "Process")
	defer infra.Recover(entry, "process event", func(r any) {
		err = errors.Errorf("event processing panicked: %v", r)
	})

	if ev.Message == nil && ev.Membership == nil {
		return errors.New("event is empty")
	}
	if ev.Target() == StatusBroadcastTarget {
		entry.Trace("skipping status broadcast")
		return nil
	}
	if eventTime := ev.Time(); !eventTime.IsZero() && up.now().Sub(eventTime) > UpdateTimeout {
		entry.WithFields(log.Fields{
			"event_time": eventTime,
			"age":        up.now().Sub(eventTime),
		}).Debug("skipping outdated event")
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ev.Membership != nil {
		return up.processMembership(ctx, ev.Membership)
	}
	return up.processMessage(ctx, ev.Message)
}

func (up *UpdateProcessor) processMessage(ctx context.Context, msg *InboundMessage) error {
	ctx, span := observability.Tracer().Start(ctx, "process-message", trace.WithAttributes(
		attribute.String("chat", msg.ReplyTarget()),
		attribute.Bool("group", msg.IsGroup),
	))
	defer span.End()
	done := observability.StartMessageProcessing()

	for _, handler := range up.handlers {
		select {
		case <-ctx.Done():
			done("cancelled")
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, msg)
		if err != nil {
			done("error")
			span.RecordError(err)
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			getLogEntry().Trace("not proceeding")
			done("handled")
			return nil
		}
	}
	done("passed")
	return nil
}

func (up *UpdateProcessor) processMembership(ctx context.Context, ev *MembershipEvent) error {
	var errs []error
	for _, handler := range up.membershipHandlers {
		if err := handler.HandleMembership(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.WithMessage(errs[0], "membership handling error")
	}
	return nil
}

func getLogEntry() *log.Entry {
	return log.WithField("object", "UpdateProcessor")
}
