package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
)

type sentPayload struct {
	target  string
	payload bot.Payload
}

type stubConnector struct {
	mu        sync.Mutex
	sent      []sentPayload
	removed   []string
	sendErr   error
	removeErr error

	removing chan struct{}
	release  chan struct{}
}

func (c *stubConnector) SendMessage(_ context.Context, target string, payload bot.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil && payload.Delete == nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentPayload{target: target, payload: payload})
	return nil
}

func (c *stubConnector) RemoveParticipant(_ context.Context, groupID, userID string) error {
	if c.release != nil {
		c.removing <- struct{}{}
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	c.removed = append(c.removed, groupID+"/"+userID)
	return nil
}

func (c *stubConnector) FetchGroupMetadata(context.Context, string) (*bot.GroupMetadata, error) {
	return &bot.GroupMetadata{}, nil
}

func (c *stubConnector) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.sent {
		if s.payload.Delete == nil {
			out = append(out, s.payload.Text)
		}
	}
	return out
}

func (c *stubConnector) deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sent {
		if s.payload.Delete != nil {
			n++
		}
	}
	return n
}

type stubWarningStore struct {
	mu       sync.Mutex
	warnings map[string]*db.Warning
}

func (s *stubWarningStore) UpsertWarning(_ context.Context, w *db.Warning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warnings == nil {
		s.warnings = map[string]*db.Warning{}
	}
	s.warnings[w.UserID+"/"+w.GroupID] = w
	return nil
}

func (s *stubWarningStore) DeleteWarning(_ context.Context, userID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warnings, userID+"/"+groupID)
	return nil
}

type moderatorFixture struct {
	conn      *stubConnector
	bans      *stubBanStore
	warnings  *stubWarningStore
	ledger    *Ledger
	clock     *fakeClock
	moderator *Moderator
}

func testModerationConfig() config.Moderation {
	return config.Moderation{
		AntiLink:      true,
		AntiSpam:      true,
		AntiToxic:     true,
		AntiVirtex:    true,
		AutoKick:      true,
		MaxWarnings:   3,
		SpamWindow:    3 * time.Second,
		SpamThreshold: 5,
		VirtexLength:  10000,
	}
}

func newModeratorFixture(cfg config.Moderation) *moderatorFixture {
	f := &moderatorFixture{
		conn:     &stubConnector{},
		bans:     newStubBanStore(),
		warnings: &stubWarningStore{},
		clock:    newFakeClock(),
	}
	f.ledger = NewLedger(LedgerConfig{
		MaxWarnings:   cfg.MaxWarnings,
		SpamWindow:    cfg.SpamWindow,
		SpamThreshold: cfg.SpamThreshold,
	}, f.clock.Now)
	detector := NewDetector(cfg, f.ledger)
	f.moderator = NewModerator(f.conn, NewBanService(f.bans), detector, f.ledger, f.warnings, cfg, "pt")
	return f
}

func groupMessage(sender, text string) *bot.InboundMessage {
	return &bot.InboundMessage{
		ID:       "m1",
		GroupID:  "g1@g.us",
		SenderID: sender,
		IsGroup:  true,
		Text:     text,
		Key:      bot.MessageKey{ChatID: "g1@g.us", MessageID: "m1"},
	}
}

func TestModeratorIgnoresDirectMessages(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	msg := &bot.InboundMessage{SenderID: "u1", Text: "https://example.com"}
	if f.moderator.Process(context.Background(), msg) {
		t.Fatalf("direct message handled")
	}
	if len(f.conn.sent) != 0 {
		t.Fatalf("unexpected sends: %+v", f.conn.sent)
	}
}

func TestModeratorRemovesBannedSender(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	f.bans.records["u1"] = &db.BanRecord{UserID: "u1"}

	if !f.moderator.Process(context.Background(), groupMessage("u1", "https://example.com")) {
		t.Fatalf("banned sender message not handled")
	}
	if len(f.conn.removed) != 1 || f.conn.removed[0] != "g1@g.us/u1" {
		t.Fatalf("removed = %v", f.conn.removed)
	}
	if len(f.conn.texts()) != 0 {
		t.Fatalf("detection ran for a banned sender: %v", f.conn.texts())
	}
	if _, ok := f.ledger.Get("u1", "g1@g.us"); ok {
		t.Fatalf("ledger touched for a banned sender")
	}
}

func TestModeratorWarnsOnLink(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	handled := f.moderator.Process(context.Background(), groupMessage("u1", "veja https://example.com"))
	if !handled {
		t.Fatalf("link message not handled")
	}
	texts := f.conn.texts()
	if len(texts) != 1 || texts[0] != "⚠️ Aviso 1/3: link" {
		t.Fatalf("warning texts = %q", texts)
	}
	if f.conn.deletes() != 1 {
		t.Fatalf("offending message not deleted")
	}
	if w := f.warnings.warnings["u1/g1@g.us"]; w == nil || w.Count != 1 {
		t.Fatalf("warning mirror = %+v", w)
	}
}

func TestModeratorPassesCleanMessages(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	if f.moderator.Process(context.Background(), groupMessage("u1", "bom dia")) {
		t.Fatalf("clean message handled")
	}
}

func TestModeratorEnforcesAtMaximum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newModeratorFixture(testModerationConfig())
	for i := 0; i < 3; i++ {
		if !f.moderator.Process(ctx, groupMessage("u1", "www.spam.example")) {
			t.Fatalf("violation %d not handled", i+1)
		}
	}

	if len(f.conn.removed) != 1 {
		t.Fatalf("removed = %v, want one removal", f.conn.removed)
	}
	if rec := f.bans.records["u1"]; rec == nil || rec.Reason != "link" || rec.BannedBy != "system" {
		t.Fatalf("ban record = %+v", rec)
	}
	if _, ok := f.ledger.Get("u1", "g1@g.us"); ok {
		t.Fatalf("ledger not cleared after enforcement")
	}
	if _, ok := f.warnings.warnings["u1/g1@g.us"]; ok {
		t.Fatalf("warning mirror not cleared after enforcement")
	}
	texts := f.conn.texts()
	if last := texts[len(texts)-1]; last != "⛔ Máximo de avisos atingido. Usuário removido." {
		t.Fatalf("last notice = %q", last)
	}

	if !f.moderator.Process(ctx, groupMessage("u1", "oi")) {
		t.Fatalf("message from banned user not handled")
	}
	if len(f.conn.removed) != 2 {
		t.Fatalf("banned user was not removed again: %v", f.conn.removed)
	}
}

func TestModeratorRetainsCountWhenRemovalFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newModeratorFixture(testModerationConfig())
	f.conn.removeErr = errors.New("not an admin")
	for i := 0; i < 3; i++ {
		f.moderator.Process(ctx, groupMessage("u1", "https://x.example"))
	}

	rec, ok := f.ledger.Get("u1", "g1@g.us")
	if !ok || rec.Count != 3 {
		t.Fatalf("ledger record = %+v, %v; want count 3", rec, ok)
	}
	if len(f.bans.records) != 0 {
		t.Fatalf("ban persisted although removal failed")
	}

	f.conn.removeErr = nil
	f.moderator.Process(ctx, groupMessage("u1", "https://x.example"))
	if len(f.conn.removed) != 1 || f.bans.records["u1"] == nil {
		t.Fatalf("enforcement not retried: removed=%v", f.conn.removed)
	}
}

func TestModeratorEnforcesOnceForConcurrentViolations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newModeratorFixture(testModerationConfig())
	for i := 0; i < 2; i++ {
		f.moderator.Process(ctx, groupMessage("u1", "https://x.example"))
	}

	f.conn.removing = make(chan struct{}, 2)
	f.conn.release = make(chan struct{})
	finished := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.moderator.Process(ctx, groupMessage("u1", "https://x.example"))
			finished <- struct{}{}
		}()
	}

	select {
	case <-f.conn.removing:
	case <-time.After(2 * time.Second):
		t.Fatalf("enforcement never started")
	}
	// The other violation either finishes or reaches a second removal while the first one is held.
	select {
	case <-finished:
	case <-f.conn.removing:
	case <-time.After(2 * time.Second):
	}
	close(f.conn.release)
	wg.Wait()

	if len(f.conn.removed) != 1 {
		t.Fatalf("removed = %v, want exactly one removal", f.conn.removed)
	}
}

func TestModeratorRetainsCountWhenBanPersistFails(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	f.bans.insertErr = errors.New("locked")
	for i := 0; i < 3; i++ {
		f.moderator.Process(context.Background(), groupMessage("u1", "https://x.example"))
	}
	if rec, ok := f.ledger.Get("u1", "g1@g.us"); !ok || rec.Count != 3 {
		t.Fatalf("ledger record = %+v, %v; want count 3", rec, ok)
	}
}

func TestModeratorFailsOpenOnSendError(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	f.conn.sendErr = errors.New("offline")
	if f.moderator.Process(context.Background(), groupMessage("u1", "https://x.example")) {
		t.Fatalf("message handled although the warning could not be sent")
	}
}

func TestModeratorContinuesWhenBanLookupFails(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	f.bans.getErr = errors.New("locked")
	if f.moderator.Process(context.Background(), groupMessage("u1", "olá")) {
		t.Fatalf("clean message handled after lookup failure")
	}
	if !f.moderator.Process(context.Background(), groupMessage("u1", "https://x.example")) {
		t.Fatalf("violation ignored after lookup failure")
	}
}

func TestModeratorWithoutAutoKickResetsCycle(t *testing.T) {
	t.Parallel()

	cfg := testModerationConfig()
	cfg.AutoKick = false
	f := newModeratorFixture(cfg)
	for i := 0; i < 3; i++ {
		f.moderator.Process(context.Background(), groupMessage("u1", "https://x.example"))
	}
	if len(f.conn.removed) != 0 {
		t.Fatalf("user removed with auto kick disabled")
	}
	if _, ok := f.ledger.Get("u1", "g1@g.us"); ok {
		t.Fatalf("ledger not reset at maximum")
	}
}

func TestModeratorSpamBurst(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	handled := 0
	for i := 0; i < 6; i++ {
		if f.moderator.Process(context.Background(), groupMessage("u1", "oi")) {
			handled++
		}
		f.clock.Advance(400 * time.Millisecond)
	}
	if handled != 1 {
		t.Fatalf("handled = %d, want one spam detection", handled)
	}
	texts := f.conn.texts()
	if len(texts) != 1 || !strings.HasSuffix(texts[0], "spam") {
		t.Fatalf("texts = %q", texts)
	}
}

func TestModeratorCombinesReasons(t *testing.T) {
	t.Parallel()

	f := newModeratorFixture(testModerationConfig())
	long := "https://x.example " + strings.Repeat("a", 10001)
	f.moderator.Process(context.Background(), groupMessage("u1", long))
	texts := f.conn.texts()
	if len(texts) != 1 || !strings.HasSuffix(texts[0], "link, virtex") {
		t.Fatalf("texts = %q", texts)
	}
}
