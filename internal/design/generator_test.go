package design

import (
	"context"
	"math/rand/v2"
	"testing"
)

func TestGenerateProducesValidDesign(t *testing.T) {
	gen := NewCatalogGenerator(0, rand.NewPCG(51, 52))

	design, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := design.Validate(); err != nil {
		t.Fatalf("generated design invalid: %v", err)
	}

	if design.Control.CTAColor() != "blue" || design.Control.Discount() != 0 {
		t.Fatalf("control must stay at baseline, got %v", design.Control)
	}
	if design.SampleSize != DefaultSampleSize {
		t.Fatalf("expected default sample size %d, got %d", DefaultSampleSize, design.SampleSize)
	}
	if design.Metric != "conversion_rate" {
		t.Fatalf("unexpected metric %q", design.Metric)
	}
}

func TestGenerateDrawsFromCatalog(t *testing.T) {
	gen := NewCatalogGenerator(250, rand.NewPCG(53, 54))

	colors := make(map[string]bool)
	for i := 0; i < 50; i++ {
		design, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		color := design.Treatment.CTAColor()
		switch color {
		case "green", "red", "orange":
			colors[color] = true
		default:
			t.Fatalf("treatment color %q not in catalog", color)
		}
		switch design.Treatment.Discount() {
		case 0, 5, 10, 15, 20:
		default:
			t.Fatalf("treatment discount %f not in catalog", design.Treatment.Discount())
		}
		if design.SampleSize != 250 {
			t.Fatalf("configured sample size ignored, got %d", design.SampleSize)
		}
	}
	if len(colors) < 2 {
		t.Fatalf("50 draws should cover more than one color, saw %v", colors)
	}
}

func TestGenerateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewCatalogGenerator(100, rand.NewPCG(55, 56))
	if _, err := gen.Generate(ctx); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}
