package db

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	User struct {
		ID         string    `db:"id"`
		Name       string    `db:"name"`
		IsAdmin    bool      `db:"is_admin"`
		CreatedAt  time.Time `db:"created_at"`
		LastSeenAt time.Time `db:"last_seen_at"`
	}

	BanRecord struct {
		UserID   string    `db:"user_id"`
		Reason   string    `db:"reason"`
		BannedBy string    `db:"banned_by"`
		BannedAt time.Time `db:"banned_at"`
	}

	// Warning mirrors the in-memory warning ledger for inspection.
	Warning struct {
		UserID      string    `db:"user_id"`
		GroupID     string    `db:"group_id"`
		Reason      string    `db:"reason"`
		Count       int       `db:"count"`
		LastWarning time.Time `db:"last_warning"`
	}

	Product struct {
		ID          string          `db:"id"`
		Name        string          `db:"name"`
		Description string          `db:"description"`
		Price       decimal.Decimal `db:"price"`
		Stock       int             `db:"stock"`
		Category    string          `db:"category"`
		CreatedAt   time.Time       `db:"created_at"`
		UpdatedAt   time.Time       `db:"updated_at"`
	}

	Order struct {
		ID          string          `db:"id"`
		UserID      string          `db:"user_id"`
		Status      OrderStatus     `db:"status"`
		Subtotal    decimal.Decimal `db:"subtotal"`
		Tax         decimal.Decimal `db:"tax"`
		DeliveryFee decimal.Decimal `db:"delivery_fee"`
		Total       decimal.Decimal `db:"total"`
		CreatedAt   time.Time       `db:"created_at"`
		UpdatedAt   time.Time       `db:"updated_at"`
		Items       []OrderItem     `db:"-"`
	}

	OrderItem struct {
		OrderID   string          `db:"order_id"`
		ProductID string          `db:"product_id"`
		Quantity  int             `db:"quantity"`
		Price     decimal.Decimal `db:"price"`
	}

	Service struct {
		ID              string          `db:"id"`
		Name            string          `db:"name"`
		Description     string          `db:"description"`
		Price           decimal.Decimal `db:"price"`
		DurationMinutes int             `db:"duration_minutes"`
		Category        string          `db:"category"`
		MaxBookings     int             `db:"max_bookings"`
		CreatedAt       time.Time       `db:"created_at"`
	}

	Booking struct {
		ID        string        `db:"id"`
		UserID    string        `db:"user_id"`
		ServiceID string        `db:"service_id"`
		Date      string        `db:"date"`
		Time      string        `db:"time"`
		Status    BookingStatus `db:"status"`
		Notes     string        `db:"notes"`
		CreatedAt time.Time     `db:"created_at"`
	}

	Stats struct {
		Users    int `db:"users"`
		Products int `db:"products"`
		Orders   int `db:"orders"`
		Services int `db:"services"`
		Bookings int `db:"bookings"`
		Banned   int `db:"banned"`
	}

	OrderStatus   string
	BookingStatus string
)

const (
	OrderStatusPending OrderStatus = "pending"

	BookingStatusPending   BookingStatus = "pending"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ProductUpdate lists the columns an update may touch; nil fields are left as is.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
}
