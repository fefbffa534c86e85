package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Coordinators the routing table can resolve to. Contact channels are the
// desks' WhatsApp lines.
var (
	wholesaleCoordinator = Coordinator{
		Name:    "Coordinador Mayoristas",
		Contact: "+573015550041",
		Type:    CoordinatorWholesale,
	}
	horecaExecutive = Coordinator{
		Name:    "Ejecutivo Horeca",
		Contact: "+573015550042",
		Type:    CoordinatorHoreca,
	}
	massMarketCoordinator = Coordinator{
		Name:    "Coordinador Consumo Masivo",
		Contact: "+573015550043",
		Type:    CoordinatorMassMarket,
	}
	commercialDirector = Coordinator{
		Name:    "Director Comercial",
		Contact: "+573015550044",
		Type:    CoordinatorCommercial,
	}
)

// outlyingMunicipalities lists the municipalities outside the main delivery
// perimeter. Orders from these route to the mass-market desk regardless of
// the business segment, unless an earlier rule already matched.
var outlyingMunicipalities = map[string]bool{
	"soacha":      true,
	"mosquera":    true,
	"funza":       true,
	"madrid":      true,
	"facatativa":  true,
	"chia":        true,
	"cajica":      true,
	"zipaquira":   true,
	"la calera":   true,
	"tocancipa":   true,
	"sibate":      true,
	"fusagasuga":  true,
	"villeta":     true,
	"la mesa":     true,
	"sopo":        true,
	"el rosal":    true,
	"bojaca":      true,
	"subachoque":  true,
	"tabio":       true,
	"tenjo":       true,
	"cota":        true,
	"gachancipa":  true,
	"villapinzon": true,
}

// routingRule is one ordered entry of the decision table. The first rule
// whose predicate matches decides the coordinator.
type routingRule struct {
	name     string
	matches  func(segment Segment, city string) bool
	assignTo Coordinator
}

// routingTable is evaluated top to bottom; the ordering is load-bearing. A
// wholesaler in an outlying municipality routes to the wholesale desk because
// the segment rule precedes the municipality rule.
var routingTable = []routingRule{
	{
		name:     "wholesaler",
		matches:  func(segment Segment, _ string) bool { return segment == SegmentWholesaler },
		assignTo: wholesaleCoordinator,
	},
	{
		name:     "premium-restaurant",
		matches:  func(segment Segment, _ string) bool { return segment == SegmentPremiumRestaurant },
		assignTo: horecaExecutive,
	},
	{
		name:     "home",
		matches:  func(segment Segment, _ string) bool { return segment == SegmentHome },
		assignTo: massMarketCoordinator,
	},
	{
		name:     "outlying-municipality",
		matches:  func(_ Segment, city string) bool { return outlyingMunicipalities[FoldCity(city)] },
		assignTo: massMarketCoordinator,
	},
	{
		name: "commercial-segments",
		matches: func(segment Segment, _ string) bool {
			return segment == SegmentStore || segment == SegmentGrillHouse || segment == SegmentStandardRestaurant
		},
		assignTo: commercialDirector,
	},
	{
		name:     "fallback",
		matches:  func(Segment, string) bool { return true },
		assignTo: commercialDirector,
	},
}

// ResolveCoordinator maps a customer segment and city to the responsible
// coordinator. Deterministic and rule-order-sensitive.
func ResolveCoordinator(segment Segment, city string) Coordinator {
	for _, rule := range routingTable {
		if rule.matches(segment, city) {
			return rule.assignTo
		}
	}
	// Unreachable: the fallback rule matches everything.
	return commercialDirector
}

var cityFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldCity lowercases and strips diacritics so "Facatativá" and "facatativa"
// compare equal.
func FoldCity(city string) string {
	folded, _, err := transform.String(cityFolder, strings.TrimSpace(city))
	if err != nil {
		folded = city
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
