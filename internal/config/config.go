package config

import (
	"context"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

const envPrefix = "SK_"

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		Prefix           string   `env:"PREFIX,default=!"`
		OwnerID          string   `env:"OWNER,required"`
		DefaultLanguage  string   `env:"LANG,default=pt"`
		EnabledHandlers  []string `env:"HANDLERS,default=moderation,registrar,commands,fallback"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.shopkeeper"`
		Workers          int      `env:"WORKERS,default=8"`
		Moderation       Moderation
		Sales            Sales
		Services         Services
		Broadcast        Broadcast
		Metrics          Metrics
	}

	Moderation struct {
		AntiLink   bool `env:"ANTI_LINK,default=true"`
		AntiSpam   bool `env:"ANTI_SPAM,default=true"`
		AntiFake   bool `env:"ANTI_FAKE,default=false"`
		AntiToxic  bool `env:"ANTI_TOXIC,default=true"`
		AntiVirtex bool `env:"ANTI_VIRTEX,default=true"`
		AutoKick   bool `env:"AUTO_KICK,default=true"`
		Welcome    bool `env:"WELCOME,default=true"`
		Goodbye    bool `env:"GOODBYE,default=true"`
		RoleChange bool `env:"ROLE_CHANGE,default=true"`

		MaxWarnings   int           `env:"MAX_WARNINGS,default=3"`
		SpamWindow    time.Duration `env:"SPAM_WINDOW,default=3s"`
		SpamThreshold int           `env:"SPAM_THRESHOLD,default=5"`
		VirtexLength  int           `env:"VIRTEX_LENGTH,default=10000"`
	}

	Sales struct {
		Currency      string  `env:"SALES_CURRENCY,default=MZN"`
		TaxRate       float64 `env:"SALES_TAX_RATE,default=0.1"`
		MinOrderValue float64 `env:"SALES_MIN_ORDER_VALUE,default=10"`
		MaxOrderValue float64 `env:"SALES_MAX_ORDER_VALUE,default=1000"`
		DeliveryFee   float64 `env:"SALES_DELIVERY_FEE,default=5"`
	}

	Services struct {
		WorkingHoursStart string        `env:"SERVICES_HOURS_START,default=09:00"`
		WorkingHoursEnd   string        `env:"SERVICES_HOURS_END,default=18:00"`
		MaxBookingsPerDay int           `env:"SERVICES_MAX_BOOKINGS_PER_DAY,default=10"`
		DefaultCapacity   int           `env:"SERVICES_DEFAULT_CAPACITY,default=8"`
		MinAdvance        time.Duration `env:"SERVICES_MIN_ADVANCE,default=24h"`
		MaxAdvanceDays    int           `env:"SERVICES_MAX_ADVANCE_DAYS,default=30"`
	}

	Broadcast struct {
		Delay time.Duration `env:"BROADCAST_DELAY,default=1s"`
	}

	Metrics struct {
		Enabled bool   `env:"METRICS_ENABLED,default=false"`
		Addr    string `env:"METRICS_ADDR,default=:2112"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadWith reads the configuration from lookuper, keys prefixed with SK_.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, sk.Configuration("process env config: %v", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, sk.Configuration("expand dot path: %v", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Prefix == "":
		return sk.Configuration("command prefix is empty")
	case !i18n.IsSupported(c.DefaultLanguage):
		return sk.Configuration("unsupported language %q", c.DefaultLanguage)
	case c.Moderation.MaxWarnings < 1:
		return sk.Configuration("max warnings must be positive, got %d", c.Moderation.MaxWarnings)
	case c.Moderation.SpamThreshold < 1:
		return sk.Configuration("spam threshold must be positive, got %d", c.Moderation.SpamThreshold)
	case c.Workers < 1:
		return sk.Configuration("workers must be positive, got %d", c.Workers)
	case c.Sales.MinOrderValue > c.Sales.MaxOrderValue:
		return sk.Configuration("min order value %v exceeds max order value %v", c.Sales.MinOrderValue, c.Sales.MaxOrderValue)
	}
	start, err := time.Parse("15:04", c.Services.WorkingHoursStart)
	if err != nil {
		return sk.Configuration("parse working hours start: %v", err)
	}
	end, err := time.Parse("15:04", c.Services.WorkingHoursEnd)
	if err != nil {
		return sk.Configuration("parse working hours end: %v", err)
	}
	if !end.After(start) {
		return sk.Configuration("working hours end %s is not after start %s", c.Services.WorkingHoursEnd, c.Services.WorkingHoursStart)
	}
	return nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
