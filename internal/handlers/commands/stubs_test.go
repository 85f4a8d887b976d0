package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/commerce"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
	"github.com/iamwavecut/shopkeeper/internal/db/sqlite"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

const (
	testGroup = "g1"
	testAdmin = "admin1"
	testUser  = "user1"
	testOwner = "258840000001"
)

type sent struct {
	target   string
	text     string
	mentions []string
}

type stubMessenger struct {
	mu       sync.Mutex
	sent     []sent
	removed  []string
	failSend map[string]bool
	groups   []string
	closed   map[string]bool
	metaErr  error
}

func newStubMessenger() *stubMessenger {
	return &stubMessenger{
		failSend: map[string]bool{},
		closed:   map[string]bool{},
	}
}

func (m *stubMessenger) SendMessage(_ context.Context, target string, payload bot.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend[target] {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, sent{target: target, text: payload.Text, mentions: payload.Mentions})
	return nil
}

func (m *stubMessenger) RemoveParticipant(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, groupID+"/"+userID)
	return nil
}

func (m *stubMessenger) FetchGroupMetadata(_ context.Context, groupID string) (*bot.GroupMetadata, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return &bot.GroupMetadata{
		ID: groupID,
		Participants: []bot.Participant{
			{ID: testAdmin, IsAdmin: true},
			{ID: testUser},
		},
	}, nil
}

func (m *stubMessenger) SetGroupAnnouncement(_ context.Context, groupID string, closed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[groupID] = closed
	return nil
}

func (m *stubMessenger) GroupInviteLink(_ context.Context, groupID string) (string, error) {
	return "https://t.me/joinchat/" + groupID, nil
}

func (m *stubMessenger) RevokeGroupInvite(_ context.Context, groupID string) (string, error) {
	return "https://t.me/joinchat/new" + groupID, nil
}

func (m *stubMessenger) ListGroups(context.Context) ([]string, error) {
	return m.groups, nil
}

func (m *stubMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

func (m *stubMessenger) last(t *testing.T) sent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	return m.sent[len(m.sent)-1]
}

type stubBans struct {
	mu      sync.Mutex
	records []*db.BanRecord
	err     error
}

func (b *stubBans) Ban(_ context.Context, record *db.BanRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.records = append(b.records, record)
	return nil
}

type stubLedger struct {
	resets int
}

func (l *stubLedger) Reset() {
	l.resets++
}

type fixture struct {
	router    *Router
	messenger *stubMessenger
	bans      *stubBans
	ledger    *stubLedger
	store     db.Client
}

func testConfig() *config.Config {
	return &config.Config{
		Prefix:          "!",
		OwnerID:         testOwner,
		DefaultLanguage: "pt",
		Moderation: config.Moderation{
			AntiLink:    true,
			AntiSpam:    true,
			AutoKick:    true,
			MaxWarnings: 3,
		},
		Sales: config.Sales{
			Currency:      "MZN",
			TaxRate:       0.1,
			MinOrderValue: 10,
			MaxOrderValue: 1000,
			DeliveryFee:   5,
		},
		Services: config.Services{
			WorkingHoursStart: "09:00",
			WorkingHoursEnd:   "18:00",
			MaxBookingsPerDay: 10,
			DefaultCapacity:   2,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := testConfig()
	f := &fixture{
		messenger: newStubMessenger(),
		bans:      &stubBans{},
		ledger:    &stubLedger{},
		store:     store,
	}
	router, err := New(Deps{
		Messenger: f.messenger,
		Gate:      permissions.NewGate(f.messenger, nil, cfg.OwnerID),
		Store:     store,
		Bans:      f.bans,
		Ledger:    f.ledger,
		Sales:     commerce.NewSales(store, cfg.Sales, cfg.DefaultLanguage),
		Bookings:  commerce.NewBookings(store, cfg.Services, cfg.DefaultLanguage, nil),
		Config:    cfg,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.router = router
	return f
}

func groupMsg(sender, text string, mentions ...string) *bot.InboundMessage {
	return &bot.InboundMessage{
		ID:           "m1",
		GroupID:      testGroup,
		SenderID:     sender,
		IsGroup:      true,
		Text:         text,
		MentionedIDs: mentions,
	}
}

func directMsg(sender, text string) *bot.InboundMessage {
	return &bot.InboundMessage{
		ID:       "m1",
		SenderID: sender,
		Text:     text,
	}
}
