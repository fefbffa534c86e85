package services

import (
	"errors"
	"testing"

	domain "github.com/avicolanorte/api/internal/domain"
)

func TestResolveCartLinesSplitsOnCommaAndConjunction(t *testing.T) {
	catalog := domain.CatalogFor(domain.SegmentStore)

	lines, err := ResolveCartLines("2 pollo entero, 3 alitas y 1 pechuga", catalog)
	if err != nil {
		t.Fatalf("ResolveCartLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Name != "Pollo Entero" || lines[0].Quantity != 2 || lines[0].Subtotal != 38000 {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Name != "Alitas" || lines[1].Subtotal != 42000 {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
	if lines[2].Name != "Pechuga" || lines[2].Subtotal != 14500 {
		t.Fatalf("unexpected third line %+v", lines[2])
	}
}

func TestResolveCartLinesDiscardsCommentaryFragments(t *testing.T) {
	catalog := domain.CatalogFor(domain.SegmentHome)

	lines, err := ResolveCartLines("buenas tardes, 2 muslos, para mañana por favor", catalog)
	if err != nil {
		t.Fatalf("ResolveCartLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected the commentary to be discarded, got %d lines", len(lines))
	}
	if lines[0].Name != "Muslos" {
		t.Fatalf("unexpected line %+v", lines[0])
	}
}

func TestResolveCartLinesRepeatedProductYieldsIndependentLines(t *testing.T) {
	catalog := domain.CatalogFor(domain.SegmentStore)

	lines, err := ResolveCartLines("2 alitas, 2 alitas", catalog)
	if err != nil {
		t.Fatalf("ResolveCartLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("repeated mentions must not merge, got %d lines", len(lines))
	}
}

func TestResolveCartLinesFirstCatalogMatchWins(t *testing.T) {
	catalog := domain.Catalog{
		{Name: "Pollo Entero", UnitPrice: 19000},
		{Name: "Pollo Despresado", UnitPrice: 20000},
	}

	lines, err := ResolveCartLines("1 pollo", catalog)
	if err != nil {
		t.Fatalf("ResolveCartLines: %v", err)
	}
	if lines[0].Name != "Pollo Entero" {
		t.Fatalf("expected first catalog entry to win, got %s", lines[0].Name)
	}
}

func TestResolveCartLinesNoProductsRecognized(t *testing.T) {
	catalog := domain.CatalogFor(domain.SegmentHome)

	for _, text := range []string{"hola buenas", "quiero pedir", "0 alitas", "3 lomo de cerdo"} {
		if _, err := ResolveCartLines(text, catalog); !errors.Is(err, ErrNoProductsRecognized) {
			t.Fatalf("text %q: expected ErrNoProductsRecognized, got %v", text, err)
		}
	}
}
