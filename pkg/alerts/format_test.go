package alerts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

func TestFormat_SingleItem(t *testing.T) {
	msg := alerts.Format([]model.Product{
		{ID: "1", Name: "Matcha Powder", Quantity: 1, RestockThreshold: 2, Supplier: "Kingeleke"},
	})

	assert.Contains(t, msg, "Matcha Powder")
	assert.Contains(t, msg, "1")
	assert.Contains(t, msg, "Kingeleke")
	assert.NotContains(t, msg, "more items")
	assert.True(t, strings.HasPrefix(msg, "Sent from "+alerts.DefaultBrand))
	assert.True(t, strings.HasSuffix(msg, "Time to restock! 🧋"))
}

func TestFormat_ManyItems(t *testing.T) {
	msg := alerts.Format([]model.Product{
		{ID: "1", Name: "Tapioca Pearls", Quantity: 2},
		{ID: "2", Name: "Brown Sugar Syrup", Quantity: 0},
		{ID: "3", Name: "Oolong Tea", Quantity: 1},
		{ID: "4", Name: "Boba Straws", Quantity: 3},
	})

	assert.Contains(t, msg, "4 items")
	assert.Contains(t, msg, "Tapioca Pearls (2 left)")
	assert.Contains(t, msg, "Brown Sugar Syrup (0 left)")
	assert.Contains(t, msg, "2 more items")
	assert.NotContains(t, msg, "Oolong Tea")
	assert.NotContains(t, msg, "Boba Straws")
}

func TestFormat_TwoItems(t *testing.T) {
	msg := alerts.Format([]model.Product{
		{ID: "1", Name: "Cups", Quantity: 5},
		{ID: "2", Name: "Lids", Quantity: 4},
	})

	assert.Contains(t, msg, "2 items")
	assert.Contains(t, msg, "Cups (5 left), Lids (4 left)")
	assert.NotContains(t, msg, "more items")
}

func TestFormat_Empty(t *testing.T) {
	assert.Empty(t, alerts.Format(nil))
}

func TestFormatter_Brand(t *testing.T) {
	f := alerts.Formatter{Brand: "Corner Cafe"}
	msg := f.Format([]model.Product{{Name: "Milk", Quantity: 1, Supplier: "Dairy Co"}})
	assert.True(t, strings.HasPrefix(msg, "Sent from Corner Cafe - "))
}
