package moderation

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/config"
)

type ViolationKind string

const (
	ViolationSpam         ViolationKind = "spam"
	ViolationLink         ViolationKind = "link"
	ViolationToxic        ViolationKind = "toxic"
	ViolationFakeIdentity ViolationKind = "fake-identity"
	ViolationVirtex       ViolationKind = "virtex"
)

var linkPattern = regexp.MustCompile(`(?i)(https?://\S+)|(www\.\S+)`)

type (
	// ToxicityClassifier decides whether text is abusive.
	ToxicityClassifier interface {
		IsToxic(ctx context.Context, text string) (bool, error)
	}

	// IdentityHeuristic reports sender identifiers that look fake.
	IdentityHeuristic func(senderID string) bool

	spamCounter interface {
		RecordSpamTick(senderID string, now time.Time) bool
		Now() time.Time
	}

	Detector struct {
		cfg        config.Moderation
		spam       spamCounter
		classifier ToxicityClassifier
		identity   IdentityHeuristic
	}

	DetectorOption func(*Detector)

	nopClassifier struct{}
)

func (nopClassifier) IsToxic(context.Context, string) (bool, error) {
	return false, nil
}

func WithClassifier(c ToxicityClassifier) DetectorOption {
	return func(d *Detector) {
		if c != nil {
			d.classifier = c
		}
	}
}

func WithIdentityHeuristic(h IdentityHeuristic) DetectorOption {
	return func(d *Detector) {
		if h != nil {
			d.identity = h
		}
	}
}

func NewDetector(cfg config.Moderation, spam spamCounter, opts ...DetectorOption) *Detector {
	d := &Detector{
		cfg:        cfg,
		spam:       spam,
		classifier: nopClassifier{},
		identity:   LooksFakeIdentity,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs every enabled check and returns all kinds that matched.
// Direct messages are never checked.
func (d *Detector) Detect(ctx context.Context, msg *bot.InboundMessage) []ViolationKind {
	if msg == nil || !msg.IsGroup {
		return nil
	}
	var kinds []ViolationKind
	if d.cfg.AntiSpam && d.spam.RecordSpamTick(msg.SenderID, d.spam.Now()) {
		kinds = append(kinds, ViolationSpam)
	}
	if d.cfg.AntiLink && ContainsLink(msg.Text) {
		kinds = append(kinds, ViolationLink)
	}
	if d.cfg.AntiToxic && d.isToxic(ctx, msg.Text) {
		kinds = append(kinds, ViolationToxic)
	}
	if d.cfg.AntiFake && d.identity(msg.SenderID) {
		kinds = append(kinds, ViolationFakeIdentity)
	}
	if d.cfg.AntiVirtex && IsVirtex(msg.Text, d.cfg.VirtexLength) {
		kinds = append(kinds, ViolationVirtex)
	}
	return kinds
}

func (d *Detector) isToxic(ctx context.Context, text string) bool {
	toxic, err := d.classifier.IsToxic(ctx, text)
	if err != nil {
		log.WithFields(log.Fields{
			"object": "Detector",
			"method": "isToxic",
			"error":  err.Error(),
		}).Warn("toxicity classifier failed")
		return false
	}
	return toxic
}

func ContainsLink(text string) bool {
	return linkPattern.MatchString(text)
}

// IsVirtex reports text longer than limit characters.
func IsVirtex(text string, limit int) bool {
	if limit <= 0 {
		limit = 10000
	}
	return utf8.RuneCountInString(text) > limit
}

// LooksFakeIdentity flags phone-number identities that start with 1 or are not
// twelve digits long. It is an approximation and misfires on many legitimate numbers.
func LooksFakeIdentity(senderID string) bool {
	number, _, _ := strings.Cut(senderID, "@")
	return strings.HasPrefix(number, "1") || len(number) != 12
}

func JoinReasons(kinds []ViolationKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
