package moderation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/iamwavecut/shopkeeper/internal/bot"
)

type stubClassifier struct {
	toxic bool
	err   error
}

func (s stubClassifier) IsToxic(context.Context, string) (bool, error) {
	return s.toxic, s.err
}

func TestContainsLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"see https://example.com/a?b=c", true},
		{"HTTP://EXAMPLE.COM", true},
		{"go to www.example.com now", true},
		{"WWW.EXAMPLE.COM", true},
		{"https:// nothing", false},
		{"plain text", false},
		{"email me at a@b.com", false},
	}
	for _, tt := range tests {
		if got := ContainsLink(tt.text); got != tt.want {
			t.Fatalf("ContainsLink(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsVirtex(t *testing.T) {
	t.Parallel()

	if IsVirtex(strings.Repeat("a", 10000), 10000) {
		t.Fatalf("exactly 10000 characters flagged")
	}
	if !IsVirtex(strings.Repeat("a", 10001), 10000) {
		t.Fatalf("10001 characters not flagged")
	}
	if IsVirtex(strings.Repeat("é", 6000), 10000) {
		t.Fatalf("multibyte text measured in bytes")
	}
}

func TestLooksFakeIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"258841234567@s.whatsapp.net", false},
		{"15551234567@s.whatsapp.net", true},
		{"123456789012@s.whatsapp.net", true},
		{"25884123456@s.whatsapp.net", true},
		{"258841234567", false},
	}
	for _, tt := range tests {
		if got := LooksFakeIdentity(tt.id); got != tt.want {
			t.Fatalf("LooksFakeIdentity(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestDetectUnionOfEnabledChecks(t *testing.T) {
	t.Parallel()

	cfg := testModerationConfig()
	cfg.AntiFake = true
	ledger := NewLedger(defaultLedgerConfig(), newFakeClock().Now)
	d := NewDetector(cfg, ledger, WithClassifier(stubClassifier{toxic: true}))

	msg := groupMessage("15551234567@s.whatsapp.net", "https://x.example "+strings.Repeat("z", 10001))
	got := d.Detect(context.Background(), msg)
	want := []ViolationKind{ViolationLink, ViolationToxic, ViolationFakeIdentity, ViolationVirtex}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect() = %v, want %v", got, want)
	}
}

func TestDetectRespectsToggles(t *testing.T) {
	t.Parallel()

	cfg := testModerationConfig()
	cfg.AntiLink = false
	ledger := NewLedger(defaultLedgerConfig(), newFakeClock().Now)
	d := NewDetector(cfg, ledger)

	if got := d.Detect(context.Background(), groupMessage("u1", "https://x.example")); len(got) != 0 {
		t.Fatalf("Detect() = %v with link check disabled", got)
	}
}

func TestDetectSkipsDirectMessages(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(defaultLedgerConfig(), newFakeClock().Now)
	d := NewDetector(testModerationConfig(), ledger)
	msg := &bot.InboundMessage{SenderID: "u1", Text: "https://x.example"}
	if got := d.Detect(context.Background(), msg); got != nil {
		t.Fatalf("Detect() = %v for a direct message", got)
	}
}

func TestDetectClassifierErrorIsNotToxic(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(defaultLedgerConfig(), newFakeClock().Now)
	d := NewDetector(testModerationConfig(), ledger, WithClassifier(stubClassifier{toxic: true, err: errors.New("timeout")}))
	if got := d.Detect(context.Background(), groupMessage("u1", "hello")); len(got) != 0 {
		t.Fatalf("Detect() = %v on classifier error", got)
	}
}

func TestDetectCustomIdentityHeuristic(t *testing.T) {
	t.Parallel()

	cfg := testModerationConfig()
	cfg.AntiFake = true
	ledger := NewLedger(defaultLedgerConfig(), newFakeClock().Now)
	d := NewDetector(cfg, ledger, WithIdentityHeuristic(func(id string) bool { return id == "bot" }))
	if got := d.Detect(context.Background(), groupMessage("bot", "hi")); !reflect.DeepEqual(got, []ViolationKind{ViolationFakeIdentity}) {
		t.Fatalf("Detect() = %v", got)
	}
}
