package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/restock-guardian/pkg/catalog"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	data := []byte(`
store: test
suppliers:
  - name: Kingeleke
    phone: "+15550001111"
products:
  - name: Matcha Powder
    supplier: Kingeleke
    quantity: 3
    restock_threshold: 1
    price: "25.99"
    unit: 500g container
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cat, err := catalog.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cat.Store)
	require.Len(t, cat.Suppliers, 1)
	assert.Equal(t, "+15550001111", cat.Suppliers[0].Phone)
	require.Len(t, cat.Products, 1)
	assert.Equal(t, "Matcha Powder", cat.Products[0].Name)
	assert.Equal(t, 3, cat.Products[0].Quantity)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := catalog.Load("/nonexistent/catalog.yaml")
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "products: [yaml"},
		{"no products", "store: empty\n"},
		{"missing name", "products:\n  - quantity: 1\n"},
		{"bad price", "products:\n  - name: A\n    price: twelve\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cat := catalog.Default()
	assert.Len(t, cat.Suppliers, 3)
	assert.Len(t, cat.Products, 34)
	for _, p := range cat.Products {
		assert.Greater(t, p.Quantity, p.RestockThreshold, p.Name)
	}
}

type memTarget struct {
	suppliers []model.Supplier
	products  []model.Product
	failOn    string
}

func (m *memTarget) CreateSupplier(_ context.Context, _ string, sp *model.Supplier) error {
	m.suppliers = append(m.suppliers, *sp)
	return nil
}

func (m *memTarget) CreateProduct(_ context.Context, _ string, p *model.Product) error {
	if p.Name == m.failOn {
		return errors.New("boom")
	}
	m.products = append(m.products, *p)
	return nil
}

func TestSeed(t *testing.T) {
	target := &memTarget{}
	res, err := catalog.Default().Seed(context.Background(), target, "seed")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Suppliers)
	assert.Equal(t, 34, res.Products)

	first := target.products[0]
	assert.Equal(t, "Ceylon Black Tea", first.Name)
	assert.Equal(t, "15.99", first.Price.StringFixed(2))
}

func TestSeed_StopsOnError(t *testing.T) {
	target := &memTarget{failOn: "Taro Powder"}
	res, err := catalog.Default().Seed(context.Background(), target, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Taro Powder")
	assert.Equal(t, 7, res.Products)
}
