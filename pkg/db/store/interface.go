package store

import (
	"context"
	"time"

	"github.com/avetra/backoffice/pkg/db/models"
)

// AuditFilter narrows an audit query. Empty fields match everything.
type AuditFilter struct {
	UserLogin string
	Action    string
	TableName string
}

// Store defines the interface for database operations
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	CountUsers(ctx context.Context) (int64, error)

	// Customer operations
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	ListCustomers(ctx context.Context, limit, offset int) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id uint) error

	// Customer profile operations
	UpsertCustomerProfile(ctx context.Context, profile *models.CustomerProfile) error
	GetCustomerProfile(ctx context.Context, customerID uint) (*models.CustomerProfile, error)

	// Order operations
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uint) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error

	// Setting operations
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	UpsertSetting(ctx context.Context, setting *models.Setting) error

	// Audit operations
	AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error
	QueryAuditEvents(ctx context.Context, from, to time.Time, filter AuditFilter) ([]models.AuditEvent, error)
}
