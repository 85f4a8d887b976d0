package commerce

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type (
	bookingStore interface {
		AddService(ctx context.Context, service *db.Service) error
		GetService(ctx context.Context, id string) (*db.Service, error)
		ListServices(ctx context.Context, category string) ([]*db.Service, error)
		CreateBooking(ctx context.Context, booking *db.Booking) error
		GetBooking(ctx context.Context, id string) (*db.Booking, error)
		ListUserBookings(ctx context.Context, userID string) ([]*db.Booking, error)
		ListServiceBookings(ctx context.Context, serviceID, date string) ([]*db.Booking, error)
		CountBookingsOnDate(ctx context.Context, date string) (int, error)
		CancelBooking(ctx context.Context, id string) error
	}

	Bookings struct {
		store bookingStore
		cfg   config.Services
		lang  string
		loc   *time.Location
		now   func() time.Time
		newID func() string

		// book serializes the capacity check with the insert.
		book sync.Mutex
	}
)

func NewBookings(store bookingStore, cfg config.Services, lang string, now func() time.Time) *Bookings {
	if now == nil {
		now = time.Now
	}
	return &Bookings{
		store: store,
		cfg:   cfg,
		lang:  lang,
		loc:   time.Local,
		now:   now,
		newID: newID,
	}
}

func (b *Bookings) AddService(ctx context.Context, name string, price decimal.Decimal, durationMinutes int, description, category string) (*db.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, sk.UserInput(i18n.Get("Service name is required.", b.lang))
	}
	if !price.IsPositive() {
		return nil, sk.UserInput(i18n.Get("Price must be greater than zero.", b.lang))
	}
	if durationMinutes < 1 {
		return nil, sk.UserInput(i18n.Get("Duration must be a positive number of minutes.", b.lang))
	}
	service := &db.Service{
		ID:              b.newID(),
		Name:            name,
		Description:     strings.TrimSpace(description),
		Price:           price.Round(2),
		DurationMinutes: durationMinutes,
		Category:        strings.ToLower(strings.TrimSpace(category)),
		MaxBookings:     max(b.cfg.DefaultCapacity, 1),
	}
	if err := b.store.AddService(ctx, service); err != nil {
		return nil, sk.Collaborator("add service", err)
	}
	return service, nil
}

func (b *Bookings) ListServices(ctx context.Context, category string) ([]*db.Service, error) {
	services, err := b.store.ListServices(ctx, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		return nil, sk.Collaborator("list services", err)
	}
	return services, nil
}

// Book reserves a slot for the user. The slot must lie inside working hours and
// the advance window, and the service and the day must have capacity left.
func (b *Bookings) Book(ctx context.Context, userID, serviceID, date, clock, notes string) (*db.Booking, *db.Service, error) {
	service, err := b.getService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	start, err := time.ParseInLocation(dateLayout+" "+clockLayout, date+" "+clock, b.loc)
	if err != nil {
		return nil, nil, sk.UserInput(i18n.Get("Invalid date or time. Use YYYY-MM-DD HH:MM.", b.lang))
	}
	if err := b.checkWindow(start); err != nil {
		return nil, nil, err
	}
	opening, closing := b.workingHours(start)
	end := start.Add(time.Duration(service.DurationMinutes) * time.Minute)
	if start.Before(opening) || end.After(closing) {
		return nil, nil, sk.UserInput(tool.ExecTemplate(i18n.Get("Bookings are only available between {{ .start }} and {{ .end }}.", b.lang), map[string]any{
			"start": b.cfg.WorkingHoursStart,
			"end":   b.cfg.WorkingHoursEnd,
		}))
	}

	b.book.Lock()
	defer b.book.Unlock()

	existing, err := b.store.ListServiceBookings(ctx, service.ID, date)
	if err != nil {
		return nil, nil, sk.Collaborator("list service bookings", err)
	}
	if len(existing) >= service.MaxBookings {
		return nil, nil, sk.UserInput(i18n.Get("No availability for this date.", b.lang))
	}
	for _, other := range existing {
		otherStart, err := time.ParseInLocation(dateLayout+" "+clockLayout, other.Date+" "+other.Time, b.loc)
		if err != nil {
			continue
		}
		otherEnd := otherStart.Add(time.Duration(service.DurationMinutes) * time.Minute)
		if start.Before(otherEnd) && otherStart.Before(end) {
			return nil, nil, sk.UserInput(i18n.Get("This time slot is already taken.", b.lang))
		}
	}
	dayCount, err := b.store.CountBookingsOnDate(ctx, date)
	if err != nil {
		return nil, nil, sk.Collaborator("count bookings", err)
	}
	if b.cfg.MaxBookingsPerDay > 0 && dayCount >= b.cfg.MaxBookingsPerDay {
		return nil, nil, sk.UserInput(i18n.Get("No availability for this date.", b.lang))
	}

	booking := &db.Booking{
		ID:        b.newID(),
		UserID:    userID,
		ServiceID: service.ID,
		Date:      start.Format(dateLayout),
		Time:      start.Format(clockLayout),
		Status:    db.BookingStatusPending,
		Notes:     strings.TrimSpace(notes),
	}
	if err := b.store.CreateBooking(ctx, booking); err != nil {
		return nil, nil, sk.Collaborator("create booking", err)
	}
	return booking, service, nil
}

// Cancel cancels one of the user's own bookings.
func (b *Bookings) Cancel(ctx context.Context, userID, bookingID string) error {
	booking, err := b.store.GetBooking(ctx, bookingID)
	if err != nil {
		return sk.Collaborator("get booking", err)
	}
	if booking == nil || booking.UserID != userID {
		return sk.UserInput(i18n.Get("Booking not found.", b.lang))
	}
	if booking.Status == db.BookingStatusCancelled {
		return sk.UserInput(i18n.Get("This booking is already cancelled.", b.lang))
	}
	if err := b.store.CancelBooking(ctx, bookingID); err != nil {
		return sk.Collaborator("cancel booking", err)
	}
	return nil
}

func (b *Bookings) UserBookings(ctx context.Context, userID string) ([]*db.Booking, error) {
	bookings, err := b.store.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, sk.Collaborator("list user bookings", err)
	}
	return bookings, nil
}

// AvailableSlots lists free start times for the service on date, stepping by the service duration.
func (b *Bookings) AvailableSlots(ctx context.Context, serviceID, date string) ([]string, *db.Service, error) {
	service, err := b.getService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	day, err := time.ParseInLocation(dateLayout, date, b.loc)
	if err != nil {
		return nil, nil, sk.UserInput(i18n.Get("Invalid date or time. Use YYYY-MM-DD HH:MM.", b.lang))
	}
	existing, err := b.store.ListServiceBookings(ctx, service.ID, date)
	if err != nil {
		return nil, nil, sk.Collaborator("list service bookings", err)
	}
	if len(existing) >= service.MaxBookings {
		return nil, service, nil
	}
	taken := make(map[string]bool, len(existing))
	for _, other := range existing {
		taken[other.Time] = true
	}

	step := time.Duration(service.DurationMinutes) * time.Minute
	opening, closing := b.workingHours(day)
	var slots []string
	for slot := opening; !slot.Add(step).After(closing); slot = slot.Add(step) {
		if taken[slot.Format(clockLayout)] || b.checkWindow(slot) != nil {
			continue
		}
		slots = append(slots, slot.Format(clockLayout))
	}
	return slots, service, nil
}

func (b *Bookings) getService(ctx context.Context, serviceID string) (*db.Service, error) {
	service, err := b.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, sk.Collaborator("get service", err)
	}
	if service == nil {
		return nil, sk.UserInput(i18n.Get("Service not found.", b.lang))
	}
	return service, nil
}

func (b *Bookings) checkWindow(start time.Time) error {
	now := b.now().In(b.loc)
	if start.Before(now.Add(b.cfg.MinAdvance)) {
		return sk.UserInput(tool.ExecTemplate(i18n.Get("Bookings must be made at least {{ .hours }} hours in advance.", b.lang), map[string]any{
			"hours": int(b.cfg.MinAdvance.Hours()),
		}))
	}
	if b.cfg.MaxAdvanceDays > 0 && start.After(now.AddDate(0, 0, b.cfg.MaxAdvanceDays)) {
		return sk.UserInput(tool.ExecTemplate(i18n.Get("Bookings can be made at most {{ .days }} days in advance.", b.lang), map[string]any{
			"days": b.cfg.MaxAdvanceDays,
		}))
	}
	return nil
}

func (b *Bookings) workingHours(day time.Time) (time.Time, time.Time) {
	at := func(hhmm string) time.Time {
		t, err := time.Parse(clockLayout, hhmm)
		if err != nil {
			return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, b.loc)
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, b.loc)
	}
	return at(b.cfg.WorkingHoursStart), at(b.cfg.WorkingHoursEnd)
}
