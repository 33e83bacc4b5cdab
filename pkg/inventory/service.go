package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
	"github.com/ogulcanaydogan/restock-guardian/pkg/storage"
)

var (
	// ErrInvalidProduct is returned when product fields fail validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidSupplier is returned when supplier fields fail validation.
	ErrInvalidSupplier = errors.New("invalid supplier")

	// ErrInvalidQuantity is returned for a cart quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrAlreadyInCart is returned when the product is already in the user's cart.
	ErrAlreadyInCart = errors.New("product already in cart")
)

// restockMargin is how far above the threshold a suggested cart quantity aims.
const restockMargin = 5

// Alerter is notified of every product snapshot.
type Alerter interface {
	OnSnapshot(ctx context.Context, products []model.Product) alerts.CheckResult
	SendNow(ctx context.Context, actor string, products []model.Product) (*alerts.DispatchOutcome, error)
	Forget(id string)
}

// Service is the inventory entry point. Every mutation is written to the
// activity log and then signals that stock changed; the Watcher evaluates
// the new snapshot off the caller's path.
type Service struct {
	storage storage.Storage
	alerter Alerter
	logger  *slog.Logger

	// changed holds at most one pending evaluation request.
	changed chan struct{}
}

// NewService creates an inventory service. alerter may be nil.
func NewService(store storage.Storage, alerter Alerter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage: store,
		alerter: alerter,
		logger:  logger,
		changed: make(chan struct{}, 1),
	}
}

// Changed delivers a signal after stock-affecting mutations. Signals
// coalesce: a burst of writes yields one pending evaluation.
func (s *Service) Changed() <-chan struct{} {
	return s.changed
}

func (s *Service) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// ListProducts returns products matching filter.
func (s *Service) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	return s.storage.ListProducts(ctx, filter)
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.storage.GetProduct(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, actor string, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.storage.CreateProduct(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created", "id", p.ID, "name", p.Name, "quantity", p.Quantity)
	s.record(ctx, actor, model.ActionCreate, fmt.Sprintf("Added new product: %s (%s)", p.Name, p.Supplier))
	s.notifyChanged()
	return nil
}

// UpdateProduct overwrites an existing product.
func (s *Service) UpdateProduct(ctx context.Context, actor string, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	s.record(ctx, actor, model.ActionUpdate, "Updated product details: "+p.Name)
	s.notifyChanged()
	return nil
}

// SetQuantity sets the stock level of a product.
func (s *Service) SetQuantity(ctx context.Context, actor, id string, quantity int) (*model.Product, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidProduct)
	}
	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	old := p.Quantity
	p.Quantity = quantity
	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	s.logger.Info("quantity updated", "id", p.ID, "name", p.Name, "from", old, "to", quantity)
	s.record(ctx, actor, model.ActionUpdate, fmt.Sprintf("Updated %s quantity from %d to %d", p.Name, old, quantity))
	s.notifyChanged()
	return p, nil
}

// DeleteProduct removes a product and drops it from the alerted set.
func (s *Service) DeleteProduct(ctx context.Context, actor, id string) error {
	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if s.alerter != nil {
		s.alerter.Forget(id)
	}

	s.logger.Info("product deleted", "id", id, "name", p.Name)
	s.record(ctx, actor, model.ActionDelete, fmt.Sprintf("Deleted product: %s (%s)", p.Name, p.Supplier))
	s.notifyChanged()
	return nil
}

// ListSuppliers returns every supplier ordered by name.
func (s *Service) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.storage.ListSuppliers(ctx)
}

// CreateSupplier stores a new supplier.
func (s *Service) CreateSupplier(ctx context.Context, actor string, sp *model.Supplier) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSupplier)
	}
	if err := s.storage.CreateSupplier(ctx, sp); err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	s.record(ctx, actor, model.ActionCreate, "Added new supplier: "+sp.Name)
	return nil
}

// UpdateSupplier overwrites an existing supplier.
func (s *Service) UpdateSupplier(ctx context.Context, actor string, sp *model.Supplier) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSupplier)
	}
	if err := s.storage.UpdateSupplier(ctx, sp); err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	s.record(ctx, actor, model.ActionUpdate, "Updated supplier: "+sp.Name)
	return nil
}

// DeleteSupplier removes a supplier. Products keep their supplier name.
func (s *Service) DeleteSupplier(ctx context.Context, actor, id string) error {
	sp, err := s.storage.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteSupplier(ctx, id); err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	s.record(ctx, actor, model.ActionDelete, "Deleted supplier: "+sp.Name)
	return nil
}

// Cart returns the cart of user.
func (s *Service) Cart(ctx context.Context, user string) ([]model.CartItem, error) {
	return s.storage.ListCartItems(ctx, user)
}

// SuggestedQuantity is the order quantity that brings a product a few units
// above its threshold, never less than one.
func SuggestedQuantity(p model.Product) int {
	return max(1, p.RestockThreshold-p.Quantity+restockMargin)
}

// AddToCart queues a product for restocking in actor's cart with the
// suggested quantity.
func (s *Service) AddToCart(ctx context.Context, actor, productID string) (*model.CartItem, error) {
	p, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	existing, err := s.storage.ListCartItems(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	for _, item := range existing {
		if item.ProductID == productID {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrAlreadyInCart)
		}
	}

	item := &model.CartItem{
		ProductID:        p.ID,
		ProductName:      p.Name,
		Supplier:         p.Supplier,
		Unit:             p.Unit,
		Price:            p.Price,
		CurrentStock:     p.Quantity,
		RestockThreshold: p.RestockThreshold,
		NeededQuantity:   SuggestedQuantity(*p),
		UserName:         actor,
	}
	if err := s.storage.AddCartItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	s.record(ctx, actor, model.ActionAddToCart, fmt.Sprintf("Added %s to shopping cart", p.Name))
	return item, nil
}

// UpdateCartQuantity changes the needed quantity of a cart item.
func (s *Service) UpdateCartQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.storage.UpdateCartItemQuantity(ctx, id, quantity)
}

// RemoveFromCart deletes a cart item.
func (s *Service) RemoveFromCart(ctx context.Context, actor, id string) error {
	item, err := s.storage.GetCartItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.RemoveCartItem(ctx, id); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	s.record(ctx, actor, model.ActionRemoveFromCart, fmt.Sprintf("Removed %s from shopping cart", item.ProductName))
	return nil
}

// ClearCart empties actor's cart and returns how many items were removed.
func (s *Service) ClearCart(ctx context.Context, actor string) (int64, error) {
	n, err := s.storage.ClearCart(ctx, actor)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.record(ctx, actor, model.ActionClearCart, "Cleared shopping cart")
	}
	return n, nil
}

// Receive marks a cart item as delivered: its needed quantity is added to
// stock and the item leaves the cart.
func (s *Service) Receive(ctx context.Context, actor, cartItemID string) (*model.Product, error) {
	item, err := s.storage.GetCartItem(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, fmt.Errorf("received product: %w", err)
	}

	old := p.Quantity
	p.Quantity += item.NeededQuantity
	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	if err := s.storage.RemoveCartItem(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("remove received item: %w", err)
	}

	s.logger.Info("restock received", "product", p.Name, "added", item.NeededQuantity, "quantity", p.Quantity)
	s.record(ctx, actor, model.ActionReceive, fmt.Sprintf(
		"Received %d units of %s. Updated inventory from %d to %d",
		item.NeededQuantity, p.Name, old, p.Quantity))
	s.notifyChanged()
	return p, nil
}

// LowStock returns every product at or below its restock threshold.
func (s *Service) LowStock(ctx context.Context) ([]model.Product, error) {
	products, err := s.storage.ListProducts(ctx, model.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return model.LowStock(products), nil
}

// Stats computes aggregate inventory figures.
func (s *Service) Stats(ctx context.Context) (*model.InventoryStats, error) {
	products, err := s.storage.ListProducts(ctx, model.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	stats := &model.InventoryStats{TotalValue: decimal.Zero}
	suppliers := make(map[string]struct{})
	for _, p := range products {
		stats.TotalProducts++
		if p.IsLowStock() {
			stats.LowStockItems++
		}
		if p.Quantity <= 0 {
			stats.OutOfStock++
		}
		if p.Supplier != "" {
			suppliers[p.Supplier] = struct{}{}
		}
		stats.TotalValue = stats.TotalValue.Add(p.Value())
	}
	stats.SuppliersCount = len(suppliers)
	return stats, nil
}

// Activity returns the newest activity entries first.
func (s *Service) Activity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	return s.storage.ListActivity(ctx, limit)
}

// Snapshot reads the full product list and hands it to the alerter.
func (s *Service) Snapshot(ctx context.Context) alerts.CheckResult {
	if s.alerter == nil {
		return alerts.CheckResult{Outcome: alerts.OutcomeNone}
	}
	products, err := s.storage.ListProducts(ctx, model.ProductFilter{})
	if err != nil {
		s.logger.Error("load product snapshot", "error", err)
		return alerts.CheckResult{Outcome: alerts.OutcomeFailed, Err: err}
	}
	res := s.alerter.OnSnapshot(ctx, products)
	if res.Outcome == alerts.OutcomeFailed {
		s.logger.Warn("automatic low stock alert failed", "items", len(res.Items), "error", res.Err)
	}
	return res
}

// SendAlert sends an alert for every low-stock product now.
func (s *Service) SendAlert(ctx context.Context, actor string) (*alerts.DispatchOutcome, error) {
	if s.alerter == nil {
		return nil, alerts.ErrTransportNotConfigured
	}
	products, err := s.storage.ListProducts(ctx, model.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return s.alerter.SendNow(ctx, actor, products)
}

func (s *Service) record(ctx context.Context, actor string, action model.ActionKind, details string) {
	entry := &model.ActivityEntry{
		Actor:   actor,
		Action:  action,
		Details: details,
	}
	if err := s.storage.RecordActivity(ctx, entry); err != nil {
		s.logger.Error("record activity", "action", action, "error", err)
	}
}

func validateProduct(p *model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Supplier = strings.TrimSpace(p.Supplier)
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidProduct)
	case p.RestockThreshold < 0:
		return fmt.Errorf("%w: restock threshold cannot be negative", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	}
	if p.Unit == "" {
		p.Unit = "units"
	}
	return nil
}
