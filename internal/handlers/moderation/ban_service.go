package moderation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/iamwavecut/shopkeeper/internal/db"
)

type banStore interface {
	GetBanRecord(ctx context.Context, userID string) (*db.BanRecord, error)
	InsertBanRecord(ctx context.Context, record *db.BanRecord) error
}

// BanService answers ban lookups from memory once a user is known to be banned.
// Bans are never lifted, so a positive answer is cached for the process lifetime.
type BanService struct {
	store       banStore
	knownBanned *xsync.MapOf[string, struct{}]
	lookups     singleflight.Group
}

func NewBanService(store banStore) *BanService {
	return &BanService{
		store:       store,
		knownBanned: xsync.NewMapOf[string, struct{}](),
	}
}

func (s *BanService) IsKnownBanned(userID string) bool {
	_, ok := s.knownBanned.Load(userID)
	return ok
}

func (s *BanService) IsBanned(ctx context.Context, userID string) (bool, error) {
	if s.IsKnownBanned(userID) {
		return true, nil
	}
	v, err, _ := s.lookups.Do(userID, func() (any, error) {
		record, err := s.store.GetBanRecord(ctx, userID)
		if err != nil {
			return false, err
		}
		return record != nil, nil
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant get ban record")
	}
	banned := v.(bool)
	if banned {
		s.knownBanned.Store(userID, struct{}{})
	}
	return banned, nil
}

func (s *BanService) Ban(ctx context.Context, record *db.BanRecord) error {
	if err := s.store.InsertBanRecord(ctx, record); err != nil {
		return errors.WithMessage(err, "cant insert ban record")
	}
	s.knownBanned.Store(record.UserID, struct{}{})
	return nil
}
