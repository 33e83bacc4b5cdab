package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

// SQLStore implements Storage over database/sql. The SQLite and Postgres
// backends share it and differ only in dialect.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Driver returns the backend name ("sqlite" or "postgres").
func (s *SQLStore) Driver() string { return s.dialect.name }

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// expectOne turns a zero-row update or delete into ErrNotFound.
func expectOne(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return nil
}

const productColumns = "id, name, supplier, quantity, restock_threshold, price, unit, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Supplier, &p.Quantity, &p.RestockThreshold,
		&p.Price, &p.Unit, &p.CreatedAt, &p.UpdatedAt)
}

func (s *SQLStore) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	var conditions []string
	var args []any

	if filter.Supplier != "" {
		conditions = append(conditions, "supplier = ?")
		args = append(args, filter.Supplier)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(supplier) LIKE ?)")
		args = append(args, term, term)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		// Status is derived, so it is filtered after the query.
		if filter.Status != "" && p.Status() != filter.Status {
			continue
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := scanProduct(s.queryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *SQLStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.exec(ctx,
		`INSERT INTO products (id, name, supplier, quantity, restock_threshold, price, unit, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Supplier, p.Quantity, p.RestockThreshold, p.Price, p.Unit, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.exec(ctx,
		`UPDATE products SET name = ?, supplier = ?, quantity = ?, restock_threshold = ?, price = ?, unit = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Supplier, p.Quantity, p.RestockThreshold, p.Price, p.Unit, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOne(result, "product", p.ID)
}

func (s *SQLStore) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.exec(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOne(result, "product", id)
}

const supplierColumns = "id, name, contact_person, email, phone, address, notes, created_at, updated_at"

func scanSupplier(row interface{ Scan(...any) error }, sp *model.Supplier) error {
	return row.Scan(&sp.ID, &sp.Name, &sp.ContactPerson, &sp.Email, &sp.Phone,
		&sp.Address, &sp.Notes, &sp.CreatedAt, &sp.UpdatedAt)
}

func (s *SQLStore) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.query(ctx, "SELECT "+supplierColumns+" FROM suppliers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var sp model.Supplier
		if err := scanSupplier(rows, &sp); err != nil {
			return nil, fmt.Errorf("scan supplier row: %w", err)
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, rows.Err()
}

func (s *SQLStore) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	var sp model.Supplier
	err := scanSupplier(s.queryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id = ?", id), &sp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("supplier %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &sp, nil
}

func (s *SQLStore) CreateSupplier(ctx context.Context, sp *model.Supplier) error {
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	sp.UpdatedAt = now

	_, err := s.exec(ctx,
		`INSERT INTO suppliers (id, name, contact_person, email, phone, address, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.Name, sp.ContactPerson, sp.Email, sp.Phone, sp.Address, sp.Notes, sp.CreatedAt, sp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateSupplier(ctx context.Context, sp *model.Supplier) error {
	sp.UpdatedAt = time.Now().UTC()
	result, err := s.exec(ctx,
		`UPDATE suppliers SET name = ?, contact_person = ?, email = ?, phone = ?, address = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		sp.Name, sp.ContactPerson, sp.Email, sp.Phone, sp.Address, sp.Notes, sp.UpdatedAt, sp.ID,
	)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	return expectOne(result, "supplier", sp.ID)
}

func (s *SQLStore) DeleteSupplier(ctx context.Context, id string) error {
	result, err := s.exec(ctx, "DELETE FROM suppliers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	return expectOne(result, "supplier", id)
}

const cartColumns = "id, product_id, product_name, supplier, unit, price, current_stock, restock_threshold, needed_quantity, user_name, added_at"

func scanCartItem(row interface{ Scan(...any) error }, c *model.CartItem) error {
	return row.Scan(&c.ID, &c.ProductID, &c.ProductName, &c.Supplier, &c.Unit, &c.Price,
		&c.CurrentStock, &c.RestockThreshold, &c.NeededQuantity, &c.UserName, &c.AddedAt)
}

func (s *SQLStore) ListCartItems(ctx context.Context, user string) ([]model.CartItem, error) {
	query := "SELECT " + cartColumns + " FROM cart_items"
	var args []any
	if user != "" {
		query += " WHERE user_name = ?"
		args = append(args, user)
	}
	query += " ORDER BY added_at"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var c model.CartItem
		if err := scanCartItem(rows, &c); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *SQLStore) GetCartItem(ctx context.Context, id string) (*model.CartItem, error) {
	var c model.CartItem
	err := scanCartItem(s.queryRow(ctx, "SELECT "+cartColumns+" FROM cart_items WHERE id = ?", id), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &c, nil
}

func (s *SQLStore) AddCartItem(ctx context.Context, c *model.CartItem) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.AddedAt.IsZero() {
		c.AddedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx,
		`INSERT INTO cart_items (id, product_id, product_name, supplier, unit, price, current_stock, restock_threshold, needed_quantity, user_name, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProductID, c.ProductName, c.Supplier, c.Unit, c.Price,
		c.CurrentStock, c.RestockThreshold, c.NeededQuantity, c.UserName, c.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateCartItemQuantity(ctx context.Context, id string, quantity int) error {
	result, err := s.exec(ctx, "UPDATE cart_items SET needed_quantity = ? WHERE id = ?", quantity, id)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return expectOne(result, "cart item", id)
}

func (s *SQLStore) RemoveCartItem(ctx context.Context, id string) error {
	result, err := s.exec(ctx, "DELETE FROM cart_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return expectOne(result, "cart item", id)
}

func (s *SQLStore) ClearCart(ctx context.Context, user string) (int64, error) {
	result, err := s.exec(ctx, "DELETE FROM cart_items WHERE user_name = ?", user)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLStore) RecordActivity(ctx context.Context, e *model.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.exec(ctx,
		"INSERT INTO activity_logs (id, actor, action, details, timestamp) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.Actor, e.Action, e.Details, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *SQLStore) ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	query := "SELECT id, actor, action, details, timestamp FROM activity_logs ORDER BY timestamp DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
