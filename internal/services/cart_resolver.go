package services

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	domain "github.com/avicolanorte/api/internal/domain"
)

// ErrNoProductsRecognized indicates no fragment of the message resolved to a
// catalog item. User-recoverable: the caller prompts for a retry.
var ErrNoProductsRecognized = errors.New("cart resolver: no products recognized")

// Fragments are "<integer> <free text>"; anything else is user commentary and
// is discarded without complaint.
var cartFragmentPattern = regexp.MustCompile(`^(\d+)\s+(.+)$`)

// Fragment separators: commas and the standalone Spanish conjunction "y".
var cartSeparatorPattern = regexp.MustCompile(`,|\s+y\s+`)

// ResolveCartLines parses a free-text order message against the segment's
// catalog and returns the lines to append. Repeated mentions of the same
// product yield independent lines: the reply echoes exactly what was just
// added, so merging by name would misreport it.
func ResolveCartLines(text string, catalog domain.Catalog) ([]domain.CartLine, error) {
	var added []domain.CartLine
	for _, fragment := range cartSeparatorPattern.Split(text, -1) {
		match := cartFragmentPattern.FindStringSubmatch(strings.TrimSpace(fragment))
		if match == nil {
			continue
		}
		quantity, err := strconv.Atoi(match[1])
		if err != nil || quantity <= 0 {
			continue
		}
		item, ok := catalog.Match(match[2])
		if !ok {
			continue
		}
		added = append(added, domain.CartLine{
			Name:      item.Name,
			Quantity:  quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  int64(quantity) * item.UnitPrice,
		})
	}
	if len(added) == 0 {
		return nil, ErrNoProductsRecognized
	}
	return added, nil
}
