package telegram

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

const (
	pollTimeoutSeconds = 60
	retryDelay         = 3 * time.Second
)

type (
	updatesSource interface {
		GetUpdates(config api.UpdateConfig) ([]api.Update, error)
	}

	eventProcessor interface {
		Process(ctx context.Context, ev bot.Event) error
	}

	groupTracker interface {
		Track(groupID string)
		Forget(groupID string)
	}

	// Poller long-polls Telegram and fans events out to a bounded set of workers.
	Poller struct {
		source    updatesSource
		processor eventProcessor
		groups    groupTracker
		workers   int

		mu     sync.Mutex
		cancel context.CancelFunc
		done   chan struct{}
	}
)

func NewPoller(source updatesSource, processor eventProcessor, groups groupTracker, workers int) *Poller {
	return &Poller{
		source:    source,
		processor: processor,
		groups:    groups,
		workers:   max(workers, 1),
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("poller already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		p.run(runCtx)
	}()
	return nil
}

// Stop cancels polling and waits for in-flight events, or for ctx.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context) {
	entry := p.getLogEntry().WithField("method", "run")
	g := &errgroup.Group{}
	g.SetLimit(p.workers)
	defer func() { _ = g.Wait() }()

	config := api.NewUpdate(0)
	config.Timeout = pollTimeoutSeconds
	config.AllowedUpdates = []string{"message", "chat_member", "my_chat_member"}

	for {
		select {
		case <-ctx.Done():
			entry.Debug("polling stopped")
			return
		default:
		}

		updates, err := p.poll(ctx, config)
		if err != nil && ctx.Err() != nil {
			entry.Debug("polling stopped")
			return
		}
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant get updates")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		for i := range updates {
			u := updates[i]
			if u.UpdateID < config.Offset {
				continue
			}
			config.Offset = u.UpdateID + 1
			p.trackGroups(&u)

			ev, ok := toEvent(&u)
			if !ok {
				continue
			}
			g.Go(func() error {
				if err := p.processor.Process(ctx, ev); err != nil {
					p.getLogEntry().WithFields(log.Fields{
						"method": "process",
						"chat":   ev.Target(),
						"error":  err.Error(),
					}).Error("cant process event")
				}
				return nil
			})
		}
	}
}

type pollResult struct {
	updates []api.Update
	err     error
}

// poll returns as soon as ctx is done. An abandoned request ends on its own
// long-poll timeout and its updates are delivered again, as the offset was not advanced.
func (p *Poller) poll(ctx context.Context, config api.UpdateConfig) ([]api.Update, error) {
	results := make(chan pollResult, 1)
	go func() {
		updates, err := p.source.GetUpdates(config)
		results <- pollResult{updates: updates, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		return res.updates, res.err
	}
}

// trackGroups keeps the broadcast list in sync with the groups the bot is in.
func (p *Poller) trackGroups(u *api.Update) {
	if p.groups == nil {
		return
	}
	if chat := u.FromChat(); isGroupChat(chat) {
		p.groups.Track(formatID(chat.ID))
	}
	if u.MyChatMember != nil {
		switch u.MyChatMember.NewChatMember.Status {
		case "left", "kicked":
			p.groups.Forget(formatID(u.MyChatMember.Chat.ID))
		}
	}
}

func (p *Poller) getLogEntry() *log.Entry {
	return log.WithField("object", "TelegramPoller")
}
