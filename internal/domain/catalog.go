package domain

import "strings"

// CatalogItem is one sellable product with its per-segment unit price in
// integer Colombian pesos.
type CatalogItem struct {
	Name      string
	UnitPrice int64
}

// Catalog is the ordered price list shown to a customer segment. Order
// matters: free-text resolution takes the first entry that matches.
type Catalog []CatalogItem

// segmentCatalogs holds the static price lists. Wholesale buys below store
// price; household pays the retail list.
var segmentCatalogs = map[Segment]Catalog{
	SegmentHome: {
		{Name: "Pollo Entero", UnitPrice: 22000},
		{Name: "Pechuga", UnitPrice: 16500},
		{Name: "Alitas", UnitPrice: 15500},
		{Name: "Muslos", UnitPrice: 12500},
		{Name: "Contramuslos", UnitPrice: 13000},
		{Name: "Menudencias", UnitPrice: 6000},
		{Name: "Huevos AA x30", UnitPrice: 18000},
	},
	SegmentStore: {
		{Name: "Pollo Entero", UnitPrice: 19000},
		{Name: "Pechuga", UnitPrice: 14500},
		{Name: "Alitas", UnitPrice: 14000},
		{Name: "Muslos", UnitPrice: 11000},
		{Name: "Contramuslos", UnitPrice: 11500},
		{Name: "Menudencias", UnitPrice: 5000},
		{Name: "Huevos AA x30", UnitPrice: 16500},
	},
	SegmentGrillHouse: {
		{Name: "Pollo Entero", UnitPrice: 18000},
		{Name: "Pollo Despresado", UnitPrice: 19000},
		{Name: "Alitas", UnitPrice: 13500},
		{Name: "Muslos", UnitPrice: 10500},
		{Name: "Contramuslos", UnitPrice: 11000},
	},
	SegmentStandardRestaurant: {
		{Name: "Pollo Entero", UnitPrice: 18500},
		{Name: "Pechuga", UnitPrice: 14000},
		{Name: "Alitas", UnitPrice: 13500},
		{Name: "Muslos", UnitPrice: 10500},
		{Name: "Menudencias", UnitPrice: 4500},
	},
	SegmentPremiumRestaurant: {
		{Name: "Pollo Campesino", UnitPrice: 26000},
		{Name: "Pechuga", UnitPrice: 15500},
		{Name: "Alitas Marinadas", UnitPrice: 16000},
		{Name: "Muslos Deshuesados", UnitPrice: 14500},
	},
	SegmentWholesaler: {
		{Name: "Pollo Entero", UnitPrice: 17000},
		{Name: "Pechuga", UnitPrice: 13000},
		{Name: "Alitas", UnitPrice: 12500},
		{Name: "Muslos", UnitPrice: 9800},
		{Name: "Contramuslos", UnitPrice: 10200},
		{Name: "Menudencias", UnitPrice: 4000},
		{Name: "Huevos AA x30", UnitPrice: 15000},
	},
}

// CatalogFor returns the price list for the segment. Unknown or unset
// segments fall back to the home list so a customer always sees prices.
func CatalogFor(segment Segment) Catalog {
	if catalog, ok := segmentCatalogs[segment]; ok {
		return catalog
	}
	return segmentCatalogs[SegmentHome]
}

// Match resolves free text against the catalog: the catalog name contains the
// typed text, or the typed text contains the first word of the catalog name,
// both case-insensitive. The first entry satisfying either direction wins.
func (c Catalog) Match(text string) (CatalogItem, bool) {
	typed := strings.ToLower(strings.TrimSpace(text))
	if typed == "" {
		return CatalogItem{}, false
	}
	for _, item := range c {
		name := strings.ToLower(item.Name)
		if strings.Contains(name, typed) {
			return item, true
		}
		firstWord, _, _ := strings.Cut(name, " ")
		if firstWord != "" && strings.Contains(typed, firstWord) {
			return item, true
		}
	}
	return CatalogItem{}, false
}
