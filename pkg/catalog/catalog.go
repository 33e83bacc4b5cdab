package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

//go:embed default.yaml
var defaultCatalog []byte

// SupplierEntry is a supplier in a catalog file.
type SupplierEntry struct {
	Name          string `yaml:"name"`
	ContactPerson string `yaml:"contact_person,omitempty"`
	Email         string `yaml:"email,omitempty"`
	Phone         string `yaml:"phone,omitempty"`
	Address       string `yaml:"address,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

// ProductEntry is a product in a catalog file. Price is a decimal string.
type ProductEntry struct {
	Name             string `yaml:"name"`
	Supplier         string `yaml:"supplier"`
	Quantity         int    `yaml:"quantity"`
	RestockThreshold int    `yaml:"restock_threshold"`
	Price            string `yaml:"price"`
	Unit             string `yaml:"unit"`
}

// Catalog is a seed data set of suppliers and products.
type Catalog struct {
	Store     string          `yaml:"store"`
	Suppliers []SupplierEntry `yaml:"suppliers"`
	Products  []ProductEntry  `yaml:"products"`
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return cat
}

// Parse decodes and validates YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Products) == 0 {
		return nil, fmt.Errorf("no products defined")
	}
	for i, p := range cat.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: missing name", i)
		}
		if _, err := parsePrice(p.Price); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	return &cat, nil
}

// Target receives seeded records.
type Target interface {
	CreateSupplier(ctx context.Context, actor string, sp *model.Supplier) error
	CreateProduct(ctx context.Context, actor string, p *model.Product) error
}

// Result counts what Seed created.
type Result struct {
	Suppliers int
	Products  int
}

// Seed creates every supplier and then every product of the catalog.
func (c *Catalog) Seed(ctx context.Context, target Target, actor string) (Result, error) {
	var res Result
	for _, s := range c.Suppliers {
		sp := &model.Supplier{
			Name:          s.Name,
			ContactPerson: s.ContactPerson,
			Email:         s.Email,
			Phone:         s.Phone,
			Address:       s.Address,
			Notes:         s.Notes,
		}
		if err := target.CreateSupplier(ctx, actor, sp); err != nil {
			return res, fmt.Errorf("seed supplier %q: %w", s.Name, err)
		}
		res.Suppliers++
	}

	for _, p := range c.Products {
		price, _ := parsePrice(p.Price)
		product := &model.Product{
			Name:             p.Name,
			Supplier:         p.Supplier,
			Quantity:         p.Quantity,
			RestockThreshold: p.RestockThreshold,
			Price:            price,
			Unit:             p.Unit,
		}
		if err := target.CreateProduct(ctx, actor, product); err != nil {
			return res, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
		res.Products++
	}
	return res, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return d, nil
}
