package intent

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/dtnitsch/chip-gate/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func productSnap(schema, price, cart, urlShape, breadcrumb bool) *models.PageSnapshot {
	snap := &models.PageSnapshot{
		Host:          "shop.example.com",
		Path:          "/about",
		HasPrice:      price,
		HasAddToCart:  cart,
		HasBreadcrumb: breadcrumb,
	}
	if schema {
		snap.StructuredData = []models.StructuredItem{{Type: "Product", Name: "Acme Blender"}}
	}
	if urlShape {
		snap.Path = "/product/acme-blender"
	}
	return snap
}

func TestScoreProduct_Formula(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	bools := []bool{false, true}

	for _, schema := range bools {
		for _, purchase := range bools {
			for _, urlShape := range bools {
				for _, crumb := range bools {
					snap := productSnap(schema, purchase, false, urlShape, crumb)
					want := 0.0
					if schema {
						want += 0.4
					}
					if purchase {
						want += 0.3
					}
					if urlShape {
						want += 0.2
					}
					if crumb {
						want += 0.1
					}
					got := s.ScoreProduct(snap)
					if !approx(got.Value, math.Round(want*1e6)/1e6) {
						t.Errorf("schema=%v purchase=%v url=%v crumb=%v: Value = %v, want %v",
							schema, purchase, urlShape, crumb, got.Value, want)
					}

					sum := 0.0
					for _, v := range got.Components {
						sum += v
					}
					if !approx(math.Round(sum*1e6)/1e6, got.Value) {
						t.Errorf("components %v do not sum to %v", got.Components, got.Value)
					}
				}
			}
		}
	}
}

func TestScoreProduct_SchemaPriceCartURLPasses(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	snap := productSnap(true, true, true, true, false)

	res := s.Evaluate(models.ChipProduct, snap)
	if !approx(res.Score.Value, 0.9) {
		t.Errorf("Value = %v, want 0.9", res.Score.Value)
	}
	if !res.Passed {
		t.Error("Passed = false, want true")
	}
	if res.Borderline {
		t.Error("Borderline = true for a passing score")
	}
}

func TestScoreProduct_CappedAtOne(t *testing.T) {
	cfg := models.DefaultGateConfig()
	cfg.ProductWeights.Schema = 0.9
	s := New(cfg, nil)

	got := s.ScoreProduct(productSnap(true, true, true, true, true))
	if got.Value != 1.0 {
		t.Errorf("Value = %v, want 1.0", got.Value)
	}
}

func TestEvaluate_BorderlineIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s := New(models.DefaultGateConfig(), logger)

	// schema + purchase UI + breadcrumb = 0.8, within 0.10 of 0.85
	res := s.Evaluate(models.ChipProduct, productSnap(true, true, false, false, true))
	if res.Passed {
		t.Error("Passed = true, want false")
	}
	if !res.Borderline {
		t.Error("Borderline = false, want true")
	}
	out := buf.String()
	if !strings.Contains(out, "Borderline intent score") || !strings.Contains(out, `"threshold":0.85`) {
		t.Errorf("borderline log missing fields: %s", out)
	}
}

func TestEvaluate_FarBelowIsNotBorderline(t *testing.T) {
	var buf bytes.Buffer
	s := New(models.DefaultGateConfig(), slog.New(slog.NewJSONHandler(&buf, nil)))

	res := s.Evaluate(models.ChipProduct, productSnap(true, false, false, false, false))
	if res.Passed || res.Borderline {
		t.Errorf("Passed = %v, Borderline = %v, want both false", res.Passed, res.Borderline)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}

func TestIsBorderline(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	tests := []struct {
		chip  models.ChipType
		value float64
		want  bool
	}{
		{models.ChipProduct, 0.8, true},
		{models.ChipProduct, 0.75, true},
		{models.ChipProduct, 0.7, false},
		{models.ChipProduct, 0.85, false},
		{models.ChipHealth, 0.7, true},
		{models.ChipHealth, 0.6, false},
	}
	for _, tt := range tests {
		if got := s.IsBorderline(tt.chip, tt.value); got != tt.want {
			t.Errorf("IsBorderline(%s, %v) = %v, want %v", tt.chip, tt.value, got, tt.want)
		}
	}
}

func healthSnap(blocks ...string) *models.PageSnapshot {
	return &models.PageSnapshot{
		Host:           "health.example.com",
		Path:           "/health/turmeric",
		StructuredData: []models.StructuredItem{{Type: "MedicalWebPage", Headline: "Turmeric"}},
		ContentBlocks:  blocks,
	}
}

func TestScoreHealth_PairedClaimPasses(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	snap := healthSnap("Sellers say a turmeric supplement cures arthritis in weeks.")

	res := s.Evaluate(models.ChipHealth, snap)
	if !approx(res.Score.Value, 0.9) {
		t.Errorf("Value = %v, want 0.9", res.Score.Value)
	}
	if res.Score.Components[SignalPairedClaim] != 0.3 {
		t.Errorf("paired_claim = %v, want 0.3", res.Score.Components[SignalPairedClaim])
	}
	if !res.Passed {
		t.Error("Passed = false, want true")
	}
}

func TestScoreHealth_UnpairedMedicalTermsBlock(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	// Condition, therapy, and claim verb appear, but never together in one block
	snap := healthSnap(
		"Arthritis affects millions of adults.",
		"Turmeric is a common spice.",
		"Exercise improves mobility.",
	)

	res := s.Evaluate(models.ChipHealth, snap)
	if res.Score.Value >= 0.75 {
		t.Errorf("Value = %v, want < 0.75", res.Score.Value)
	}
	if res.Passed {
		t.Error("Passed = true, want false")
	}
	if res.Score.Components[SignalPairedClaim] != 0 {
		t.Errorf("paired_claim = %v, want 0", res.Score.Components[SignalPairedClaim])
	}
}

func TestScoreHealth_HeadingCountsAsBlock(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	snap := healthSnap()
	snap.Headings = []string{"Does Turmeric Cure Arthritis?"}

	if got := s.ScoreHealth(snap).Components[SignalPairedClaim]; got != 0.3 {
		t.Errorf("paired_claim = %v, want 0.3", got)
	}
}

func TestScoreHealth_WordBoundaries(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	// "oil" inside "spoiled", "cure" inside "secure" must not match
	snap := healthSnap("A secure, spoiled fluke of arthritis.")

	if got := s.ScoreHealth(snap).Components[SignalPairedClaim]; got != 0 {
		t.Errorf("paired_claim = %v, want 0", got)
	}
}

func TestScoreHealth_NonEnglishSkipsClaim(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	snap := healthSnap("turmeric supplement cures arthritis")
	snap.Language = "de"

	if got := s.ScoreHealth(snap).Components[SignalPairedClaim]; got != 0 {
		t.Errorf("paired_claim = %v, want 0", got)
	}
}

func TestScore_Dispatch(t *testing.T) {
	s := New(models.DefaultGateConfig(), nil)
	snap := healthSnap("x")

	if _, ok := s.Score(models.ChipHealth, snap).Components[SignalPairedClaim]; !ok {
		t.Error("health score missing paired_claim component")
	}
	if _, ok := s.Score(models.ChipProduct, snap).Components[SignalPurchaseUI]; !ok {
		t.Error("product score missing purchase_ui component")
	}
}
