package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for inventory, carts and the activity log.
type Storage interface {
	// ListProducts returns products matching the filter, ordered by name.
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetProduct retrieves a product by id.
	GetProduct(ctx context.Context, id string) (*model.Product, error)

	// CreateProduct inserts a product, assigning an id when empty.
	CreateProduct(ctx context.Context, product *model.Product) error

	// UpdateProduct overwrites every mutable field of an existing product.
	UpdateProduct(ctx context.Context, product *model.Product) error

	// DeleteProduct removes a product.
	DeleteProduct(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
	CreateSupplier(ctx context.Context, supplier *model.Supplier) error
	UpdateSupplier(ctx context.Context, supplier *model.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error

	// ListCartItems returns the cart of a user, or every cart when user is empty.
	ListCartItems(ctx context.Context, user string) ([]model.CartItem, error)
	GetCartItem(ctx context.Context, id string) (*model.CartItem, error)
	AddCartItem(ctx context.Context, item *model.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, id string, quantity int) error
	RemoveCartItem(ctx context.Context, id string) error

	// ClearCart removes every cart item of a user and returns how many were removed.
	ClearCart(ctx context.Context, user string) (int64, error)

	// RecordActivity appends an entry to the activity log.
	RecordActivity(ctx context.Context, entry *model.ActivityEntry) error

	// ListActivity returns the newest entries first. A limit <= 0 means no limit.
	ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error)

	// Close releases resources.
	Close() error
}
