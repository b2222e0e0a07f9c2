package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProductWeights are the additive signal weights of the product intent model.
type ProductWeights struct {
	Schema     float64 `yaml:"schema"`
	PurchaseUI float64 `yaml:"purchase_ui"`
	URLShape   float64 `yaml:"url_shape"`
	Breadcrumb float64 `yaml:"breadcrumb"`
}

// HealthWeights are the additive signal weights of the health intent model.
type HealthWeights struct {
	Schema      float64 `yaml:"schema"`
	URLShape    float64 `yaml:"url_shape"`
	PairedClaim float64 `yaml:"paired_claim"`
}

// GateConfig holds the constants of the gate pipeline.
// Values are fixed for a process lifetime; nothing is tuned at runtime.
type GateConfig struct {
	ProductThreshold float64        `yaml:"product_threshold"`
	HealthThreshold  float64        `yaml:"health_threshold"`
	BorderlineMargin float64        `yaml:"borderline_margin"`
	ProductWeights   ProductWeights `yaml:"product_weights"`
	HealthWeights    HealthWeights  `yaml:"health_weights"`

	MaxSubjectWords int      `yaml:"max_subject_words"`
	BrandTokens     []string `yaml:"brand_tokens"`
	GenericTerms    []string `yaml:"generic_terms"`

	ConditionTerms []string `yaml:"condition_terms"`
	TherapyTerms   []string `yaml:"therapy_terms"`
	ClaimVerbs     []string `yaml:"claim_verbs"`

	URLCooldown     time.Duration `yaml:"url_cooldown"`
	OriginDismissal time.Duration `yaml:"origin_dismissal"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`

	// MinListingCards is the size of a repeated card group that marks a listing page.
	MinListingCards int `yaml:"min_listing_cards"`
}

// DefaultGateConfig returns the production constants.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ProductThreshold: 0.85,
		HealthThreshold:  0.75,
		BorderlineMargin: 0.10,
		ProductWeights: ProductWeights{
			Schema:     0.4,
			PurchaseUI: 0.3,
			URLShape:   0.2,
			Breadcrumb: 0.1,
		},
		HealthWeights: HealthWeights{
			Schema:      0.3,
			URLShape:    0.3,
			PairedClaim: 0.3,
		},
		MaxSubjectWords: 8,
		BrandTokens: []string{
			"amazon", "walmart", "target", "ebay", "etsy", "costco", "best buy", "bestbuy",
			"home depot", "lowes", "kroger", "walgreens", "cvs", "sephora", "ulta", "ikea",
			"apple", "samsung", "google", "microsoft", "sony", "nike", "adidas", "dell",
			"hp", "lenovo", "lg", "bose", "dyson", "nestle", "pfizer", "bayer", "gnc",
			"iherb", "webmd", "healthline", "mayo clinic",
		},
		GenericTerms: []string{
			"health", "wellness", "products", "product", "shop", "store", "deals", "sale",
			"home", "news", "medicine", "supplements", "vitamins", "beauty", "fitness",
			"nutrition", "diet", "electronics", "clothing", "shoes", "overview",
		},
		ConditionTerms: []string{
			"cancer", "diabetes", "arthritis", "anxiety", "depression", "insomnia", "obesity",
			"hypertension", "high blood pressure", "cholesterol", "alzheimer's", "dementia",
			"asthma", "eczema", "psoriasis", "migraine", "covid", "covid-19", "flu",
			"infection", "inflammation", "autism", "adhd", "acne", "heart disease",
			"joint pain", "back pain", "chronic pain", "fatigue", "tinnitus",
		},
		TherapyTerms: []string{
			"supplement", "supplements", "vitamin", "vitamins", "herb", "herbal", "extract",
			"oil", "cbd", "turmeric", "curcumin", "probiotic", "probiotics", "diet", "detox",
			"cleanse", "tea", "remedy", "treatment", "therapy", "drug", "medication", "pill",
			"capsule", "injection", "vaccine", "fasting", "essential oil", "zinc", "magnesium",
			"melatonin", "ivermectin", "collagen",
		},
		ClaimVerbs: []string{
			"cures", "cure", "cured", "heals", "heal", "reverses", "reverse", "prevents",
			"prevent", "treats", "treat", "eliminates", "eliminate", "fights", "boosts",
			"reduces", "reduce", "relieves", "relieve", "kills", "destroys", "stops",
			"eases", "improves", "lowers",
		},
		URLCooldown:     30 * time.Minute,
		OriginDismissal: 24 * time.Hour,
		CacheTTL:        30 * time.Minute,
		CacheMaxEntries: 50,
		MinListingCards: 6,
	}
}

// Threshold returns the gate threshold for a chip type.
func (c GateConfig) Threshold(chipType ChipType) float64 {
	if chipType == ChipHealth {
		return c.HealthThreshold
	}
	return c.ProductThreshold
}

// LoadGateConfig overlays a YAML file onto the defaults.
// A missing file yields the defaults unchanged.
func LoadGateConfig(path string) (GateConfig, error) {
	cfg := DefaultGateConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c GateConfig) Validate() error {
	if c.ProductThreshold <= 0 || c.ProductThreshold > 1 {
		return fmt.Errorf("product_threshold must be in (0,1], got %v", c.ProductThreshold)
	}
	if c.HealthThreshold <= 0 || c.HealthThreshold > 1 {
		return fmt.Errorf("health_threshold must be in (0,1], got %v", c.HealthThreshold)
	}
	if c.BorderlineMargin < 0 {
		return fmt.Errorf("borderline_margin must not be negative")
	}
	if c.MaxSubjectWords <= 0 {
		return fmt.Errorf("max_subject_words must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	if c.URLCooldown <= 0 || c.OriginDismissal <= 0 || c.CacheTTL <= 0 {
		return fmt.Errorf("cooldown and cache durations must be positive")
	}
	return nil
}
