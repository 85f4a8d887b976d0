package moderation

import (
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Clock func() time.Time

type LedgerConfig struct {
	MaxWarnings   int
	SpamWindow    time.Duration
	SpamThreshold int
}

type WarningRecord struct {
	Count     int
	Reasons   []string
	UpdatedAt time.Time
	enforcing bool
}

type spamWindow struct {
	count     int
	startedAt time.Time
}

type warningKey struct {
	userID  string
	groupID string
}

// Ledger keeps warning counts per (user, group) and spam windows per sender.
// Every operation on a key is atomic with respect to other operations on that key.
type Ledger struct {
	cfg      LedgerConfig
	now      Clock
	warnings *xsync.MapOf[warningKey, WarningRecord]
	spam     *xsync.MapOf[string, spamWindow]
}

func NewLedger(cfg LedgerConfig, now Clock) *Ledger {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxWarnings < 1 {
		cfg.MaxWarnings = 3
	}
	if cfg.SpamWindow <= 0 {
		cfg.SpamWindow = 3 * time.Second
	}
	if cfg.SpamThreshold < 1 {
		cfg.SpamThreshold = 5
	}
	return &Ledger{
		cfg:      cfg,
		now:      now,
		warnings: xsync.NewMapOf[warningKey, WarningRecord](),
		spam:     xsync.NewMapOf[string, spamWindow](),
	}
}

func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) MaxWarnings() int {
	return l.cfg.MaxWarnings
}

// RecordSpamTick counts a message from sender at now and reports a breach of
// the threshold inside the current window. A breach drops the window so the
// next message opens a new one.
func (l *Ledger) RecordSpamTick(senderID string, now time.Time) bool {
	var breached bool
	l.spam.Compute(senderID, func(w spamWindow, loaded bool) (spamWindow, bool) {
		if !loaded || now.Sub(w.startedAt) >= l.cfg.SpamWindow {
			return spamWindow{count: 1, startedAt: now}, false
		}
		w.count++
		if w.count > l.cfg.SpamThreshold {
			breached = true
			return w, true
		}
		return w, false
	})
	return breached
}

// Escalate adds a warning and reports whether the count reached the maximum.
func (l *Ledger) Escalate(userID, groupID, reason string) (int, bool) {
	now := l.now()
	rec, _ := l.warnings.Compute(warningKey{userID, groupID}, func(old WarningRecord, _ bool) (WarningRecord, bool) {
		reasons := append(slices.Clone(old.Reasons), reason)
		if len(reasons) > l.cfg.MaxWarnings {
			reasons = reasons[len(reasons)-l.cfg.MaxWarnings:]
		}
		return WarningRecord{
			Count:     old.Count + 1,
			Reasons:   reasons,
			UpdatedAt: now,
			enforcing: old.enforcing,
		}, false
	})
	return rec.Count, rec.Count >= l.cfg.MaxWarnings
}

// ClaimEnforcement marks the key as being enforced. Only the first caller gets
// true until the record is cleared or the claim is released.
func (l *Ledger) ClaimEnforcement(userID, groupID string) bool {
	var claimed bool
	l.warnings.Compute(warningKey{userID, groupID}, func(rec WarningRecord, loaded bool) (WarningRecord, bool) {
		if !loaded {
			return rec, true
		}
		if !rec.enforcing {
			rec.enforcing = true
			claimed = true
		}
		return rec, false
	})
	return claimed
}

// ReleaseEnforcement keeps the count and lets the next violation enforce again.
func (l *Ledger) ReleaseEnforcement(userID, groupID string) {
	l.warnings.Compute(warningKey{userID, groupID}, func(rec WarningRecord, loaded bool) (WarningRecord, bool) {
		if !loaded {
			return rec, true
		}
		rec.enforcing = false
		return rec, false
	})
}

func (l *Ledger) Get(userID, groupID string) (WarningRecord, bool) {
	return l.warnings.Load(warningKey{userID, groupID})
}

func (l *Ledger) Clear(userID, groupID string) {
	l.warnings.Delete(warningKey{userID, groupID})
}

// Reset drops every warning and spam window.
func (l *Ledger) Reset() {
	l.warnings.Clear()
	l.spam.Clear()
}
