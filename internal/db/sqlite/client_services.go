package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/shopkeeper/internal/db"
)

const (
	serviceColumns = `id, name, description, price, duration_minutes, category, max_bookings, created_at`
	bookingColumns = `id, user_id, service_id, date, time, status, notes, created_at`
)

func (c *sqliteClient) AddService(ctx context.Context, service *db.Service) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	service.CreatedAt = c.now()
	if service.MaxBookings < 1 {
		service.MaxBookings = 1
	}
	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES (:id, :name, :description, :price, :duration_minutes, :category, :max_bookings, :created_at)
	`
	if _, err := c.db.NamedExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("failed to add service: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetService(ctx context.Context, id string) (*db.Service, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var service db.Service
	err := c.db.GetContext(ctx, &service, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

func (c *sqliteClient) ListServices(ctx context.Context, category string) ([]*db.Service, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `SELECT ` + serviceColumns + ` FROM services`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, name`

	var services []*db.Service
	if err := c.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (c *sqliteClient) CreateBooking(ctx context.Context, booking *db.Booking) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	booking.CreatedAt = c.now()
	if booking.Status == "" {
		booking.Status = db.BookingStatusPending
	}
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (:id, :user_id, :service_id, :date, :time, :status, :notes, :created_at)
	`
	if _, err := c.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetBooking(ctx context.Context, id string) (*db.Booking, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var booking db.Booking
	err := c.db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (c *sqliteClient) ListUserBookings(ctx context.Context, userID string) ([]*db.Booking, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var bookings []*db.Booking
	if err := c.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = ? AND status != ?
		ORDER BY date, time
	`, userID, db.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	return bookings, nil
}

// ListServiceBookings skips cancelled bookings.
func (c *sqliteClient) ListServiceBookings(ctx context.Context, serviceID, date string) ([]*db.Booking, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var bookings []*db.Booking
	if err := c.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE service_id = ? AND date = ? AND status != ?
		ORDER BY time
	`, serviceID, date, db.BookingStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to list service bookings: %w", err)
	}
	return bookings, nil
}

func (c *sqliteClient) CountBookingsOnDate(ctx context.Context, date string) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bookings WHERE date = ? AND status != ?
	`, date, db.BookingStatusCancelled); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (c *sqliteClient) CancelBooking(ctx context.Context, id string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, db.BookingStatusCancelled, id); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return nil
}
