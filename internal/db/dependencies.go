package db

import (
	"context"
	"errors"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// Client is the relational store. Getters return nil, nil when nothing matches.
type Client interface {
	Close() error

	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)

	GetBanRecord(ctx context.Context, userID string) (*BanRecord, error)
	InsertBanRecord(ctx context.Context, record *BanRecord) error

	UpsertWarning(ctx context.Context, warning *Warning) error
	GetWarning(ctx context.Context, userID, groupID string) (*Warning, error)
	DeleteWarning(ctx context.Context, userID, groupID string) error
	DeleteAllWarnings(ctx context.Context) error

	AddProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, category string, inStockOnly bool) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)

	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)

	AddService(ctx context.Context, service *Service) error
	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, category string) ([]*Service, error)

	CreateBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]*Booking, error)
	ListServiceBookings(ctx context.Context, serviceID, date string) ([]*Booking, error)
	CountBookingsOnDate(ctx context.Context, date string) (int, error)
	CancelBooking(ctx context.Context, id string) error

	GetStats(ctx context.Context) (*Stats, error)
}
