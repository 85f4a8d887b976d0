package commands

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/commerce"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

type (
	banner interface {
		Ban(ctx context.Context, record *db.BanRecord) error
	}

	resetter interface {
		Reset()
	}

	statsStore interface {
		GetStats(ctx context.Context) (*db.Stats, error)
		DeleteAllWarnings(ctx context.Context) error
		GetWarning(ctx context.Context, userID, groupID string) (*db.Warning, error)
	}

	// Deps are the collaborators the built-in commands work with.
	Deps struct {
		Messenger bot.Messenger
		Gate      *permissions.Gate
		Store     statsStore
		Bans      banner
		Ledger    resetter
		Sales     *commerce.Sales
		Bookings  *commerce.Bookings
		Config    *config.Config
		Now       func() time.Time
	}

	registry struct {
		Deps
		router  *Router
		lang    string
		limiter *rate.Limiter
	}
)

// New builds the router with every built-in command registered.
func New(deps Deps) (*Router, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	limit := rate.Inf
	if deps.Config.Broadcast.Delay > 0 {
		limit = rate.Every(deps.Config.Broadcast.Delay)
	}
	reg := &registry{
		Deps:    deps,
		lang:    deps.Config.DefaultLanguage,
		limiter: rate.NewLimiter(limit, 1),
	}

	router, err := NewRouter(deps.Messenger, deps.Gate, deps.Config.Prefix, reg.lang,
		reg.banCommand(),
		reg.helpCommand(),
		reg.pingCommand(),
		reg.adminCommand(),
		reg.groupCommand(),
		reg.productCommand(),
		reg.serviceCommand(),
		reg.cartCommand(),
	)
	if err != nil {
		return nil, err
	}
	reg.router = router
	return router, nil
}
