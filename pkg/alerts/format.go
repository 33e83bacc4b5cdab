package alerts

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

// DefaultBrand is the store name used in alert messages.
const DefaultBrand = "BobaStop Inventory"

// maxListed is how many items a multi-item alert names explicitly.
const maxListed = 2

// Formatter renders low-stock alert messages.
type Formatter struct {
	Brand string
}

// Format renders a message for the given low-stock items, in the order given.
// It returns "" for an empty list.
func (f Formatter) Format(items []model.Product) string {
	brand := f.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	prefix := "Sent from " + brand + " - "
	const suffix = "\n\nTime to restock! 🧋"

	switch len(items) {
	case 0:
		return ""
	case 1:
		item := items[0]
		return fmt.Sprintf("%sYou're low on %s! Current quantity: %d from %s.%s",
			prefix, item.Name, item.Quantity, item.Supplier, suffix)
	}

	listed := items
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	names := make([]string, 0, len(listed))
	for _, item := range listed {
		names = append(names, fmt.Sprintf("%s (%d left)", item.Name, item.Quantity))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sYou're low on %d items!\n\n", prefix, len(items))
	b.WriteString(strings.Join(names, ", "))
	if rest := len(items) - maxListed; rest > 0 {
		fmt.Fprintf(&b, " and %d more items.", rest)
	}
	b.WriteString(suffix)
	return b.String()
}

// Format renders a message with the default brand.
func Format(items []model.Product) string {
	return Formatter{}.Format(items)
}
