package domain

import "testing"

func TestResolveCoordinatorRuleOrder(t *testing.T) {
	cases := []struct {
		name    string
		segment Segment
		city    string
		want    CoordinatorType
	}{
		{"wholesaler routes to wholesale desk", SegmentWholesaler, "Bogotá", CoordinatorWholesale},
		{"wholesaler in outlying municipality keeps wholesale desk", SegmentWholesaler, "Soacha", CoordinatorWholesale},
		{"premium restaurant routes to horeca", SegmentPremiumRestaurant, "Bogotá", CoordinatorHoreca},
		{"premium restaurant in outlying municipality keeps horeca", SegmentPremiumRestaurant, "Chía", CoordinatorHoreca},
		{"home routes to mass market regardless of city", SegmentHome, "Bogotá", CoordinatorMassMarket},
		{"store in outlying municipality routes to mass market", SegmentStore, "Facatativá", CoordinatorMassMarket},
		{"store in diacritic-free spelling still matches", SegmentStore, "facatativa", CoordinatorMassMarket},
		{"store in main perimeter routes to commercial", SegmentStore, "Bogotá", CoordinatorCommercial},
		{"grill house routes to commercial", SegmentGrillHouse, "Bogotá", CoordinatorCommercial},
		{"standard restaurant routes to commercial", SegmentStandardRestaurant, "Bogotá", CoordinatorCommercial},
		{"unset segment falls back to commercial", Segment(""), "Bogotá", CoordinatorCommercial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveCoordinator(tc.segment, tc.city)
			if got.Type != tc.want {
				t.Fatalf("expected coordinator type %s, got %s", tc.want, got.Type)
			}
			if got.Name == "" || got.Contact == "" {
				t.Fatalf("coordinator identity incomplete: %+v", got)
			}
		})
	}
}

func TestResolveCoordinatorIsDeterministic(t *testing.T) {
	for _, segment := range KnownSegments() {
		for _, city := range []string{"Bogotá", "Soacha", "Zipaquirá", ""} {
			first := ResolveCoordinator(segment, city)
			second := ResolveCoordinator(segment, city)
			if first != second {
				t.Fatalf("resolution not deterministic for %s/%s: %+v vs %+v", segment, city, first, second)
			}
		}
	}
}

func TestFoldCity(t *testing.T) {
	cases := map[string]string{
		"Facatativá":  "facatativa",
		" ZIPAQUIRÁ ": "zipaquira",
		"La  Calera":  "la calera",
		"chia":        "chia",
		"":            "",
	}
	for input, want := range cases {
		if got := FoldCity(input); got != want {
			t.Fatalf("FoldCity(%q) = %q, want %q", input, got, want)
		}
	}
}
