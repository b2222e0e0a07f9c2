// Package intent scores how strongly a page is about a purchasable product or a health claim.
package intent

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/dtnitsch/chip-gate/models"
)

// Signal names reported in IntentScore.Components.
const (
	SignalSchema      = "schema"
	SignalPurchaseUI  = "purchase_ui"
	SignalURLShape    = "url_shape"
	SignalBreadcrumb  = "breadcrumb"
	SignalPairedClaim = "paired_claim"
)

var (
	productPathPattern = regexp.MustCompile(`(?i)(/dp/[a-z0-9]{10}|/gp/product/|/ip/|/p/|/product/|/products/|/itm/|/item/|/pd/|/sku/|-p-\d+)`)
	healthPathPattern  = regexp.MustCompile(`(?i)(/(health|conditions?|diseases?|medical|medicine|wellness|nutrition|supplements?|drugs?|symptoms|treatments?|remedies|diet|article|articles|news|blog)[/-]|/\d{4}/\d{2}/)`)
	nonWordPattern     = regexp.MustCompile(`[^a-z0-9'\-]+`)
)

// Result is the outcome of one intent gate.
type Result struct {
	Score      models.IntentScore `json:"score" yaml:"score"`
	Threshold  float64            `json:"threshold" yaml:"threshold"`
	Passed     bool               `json:"passed" yaml:"passed"`
	Borderline bool               `json:"borderline" yaml:"borderline"`
}

// Scorer applies the weighted-signal model. It reads config and never writes.
type Scorer struct {
	cfg        models.GateConfig
	logger     *slog.Logger
	conditions []string
	therapies  []string
	claims     []string
}

// New creates a Scorer. A nil logger discards borderline diagnostics.
func New(cfg models.GateConfig, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scorer{
		cfg:        cfg,
		logger:     logger,
		conditions: normalizeTerms(cfg.ConditionTerms),
		therapies:  normalizeTerms(cfg.TherapyTerms),
		claims:     normalizeTerms(cfg.ClaimVerbs),
	}
}

// ScoreProduct scores product intent: schema, purchase UI, URL shape, breadcrumb.
func (s *Scorer) ScoreProduct(snap *models.PageSnapshot) models.IntentScore {
	w := s.cfg.ProductWeights
	components := map[string]float64{
		SignalSchema:     weigh(snap.HasCommerceSchema(), w.Schema),
		SignalPurchaseUI: weigh(snap.HasPrice || snap.HasAddToCart, w.PurchaseUI),
		SignalURLShape:   weigh(productPathPattern.MatchString(snap.Path), w.URLShape),
		SignalBreadcrumb: weigh(snap.HasBreadcrumb, w.Breadcrumb),
	}
	return total(components)
}

// ScoreHealth scores health-claim intent: content schema, URL shape, paired claim.
func (s *Scorer) ScoreHealth(snap *models.PageSnapshot) models.IntentScore {
	w := s.cfg.HealthWeights
	components := map[string]float64{
		SignalSchema:      weigh(snap.HasContentSchema(), w.Schema),
		SignalURLShape:    weigh(healthPathPattern.MatchString(snap.Path), w.URLShape),
		SignalPairedClaim: weigh(s.hasPairedClaim(snap), w.PairedClaim),
	}
	return total(components)
}

// Score dispatches to the model for chipType.
func (s *Scorer) Score(chipType models.ChipType, snap *models.PageSnapshot) models.IntentScore {
	if chipType == models.ChipHealth {
		return s.ScoreHealth(snap)
	}
	return s.ScoreProduct(snap)
}

// Evaluate scores snap and applies the gate threshold.
// Borderline failures are logged with the raw score for calibration.
func (s *Scorer) Evaluate(chipType models.ChipType, snap *models.PageSnapshot) Result {
	score := s.Score(chipType, snap)
	threshold := s.cfg.Threshold(chipType)
	res := Result{
		Score:      score,
		Threshold:  threshold,
		Passed:     score.Value >= threshold,
		Borderline: s.IsBorderline(chipType, score.Value),
	}

	if res.Borderline {
		s.logger.Info("Borderline intent score",
			"chip_type", chipType,
			"score", score.Value,
			"threshold", threshold,
			"components", score.Components,
			"url", snap.URL,
		)
	}
	return res
}

// IsBorderline reports a failing score within the margin below the threshold.
func (s *Scorer) IsBorderline(chipType models.ChipType, value float64) bool {
	threshold := s.cfg.Threshold(chipType)
	return value < threshold && round(threshold-value) <= s.cfg.BorderlineMargin
}

// hasPairedClaim looks for a condition, a therapy, and an efficacy verb in one block.
// Only English text is matched; the lexicons are English.
func (s *Scorer) hasPairedClaim(snap *models.PageSnapshot) bool {
	if snap.Language != "" && snap.Language != "en" {
		return false
	}

	blocks := snap.ContentBlocks
	if heading := snap.PrimaryHeading(); heading != "" {
		blocks = append([]string{heading}, blocks...)
	}

	for _, block := range blocks {
		text := normalizeBlock(block)
		if containsAny(text, s.conditions) && containsAny(text, s.therapies) && containsAny(text, s.claims) {
			return true
		}
	}
	return false
}

func normalizeBlock(block string) string {
	return " " + strings.TrimSpace(nonWordPattern.ReplaceAllString(strings.ToLower(block), " ")) + " "
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := strings.TrimSpace(normalizeBlock(term)); t != "" {
			out = append(out, " "+t+" ")
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func weigh(present bool, weight float64) float64 {
	if present {
		return weight
	}
	return 0
}

func total(components map[string]float64) models.IntentScore {
	sum := 0.0
	for _, v := range components {
		sum += v
	}
	return models.IntentScore{
		Value:      math.Min(round(sum), 1.0),
		Components: components,
	}
}

// round trims float noise so 0.4+0.3+0.2 compares as 0.9.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
