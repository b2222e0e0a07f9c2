// Package models defines the value types shared by the chip gate pipeline.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChipType identifies which safety check a chip offers.
type ChipType string

const (
	ChipProduct ChipType = "product"
	ChipHealth  ChipType = "health"
)

// ChipTypes lists every chip type in evaluation order.
var ChipTypes = []ChipType{ChipProduct, ChipHealth}

// ParseChipType converts a CLI/user string into a ChipType.
func ParseChipType(s string) (ChipType, error) {
	switch ChipType(strings.ToLower(strings.TrimSpace(s))) {
	case ChipProduct:
		return ChipProduct, nil
	case ChipHealth:
		return ChipHealth, nil
	default:
		return "", fmt.Errorf("unknown chip type %q (want product or health)", s)
	}
}

// PageType is the coarse classification of a page.
type PageType string

const (
	PageSERP    PageType = "serp"
	PagePortal  PageType = "portal"
	PageArticle PageType = "article"
	PageProduct PageType = "product"
	PageUnknown PageType = "unknown"
)

// AllowedPageType returns the only page type a chip type may appear on.
func (c ChipType) AllowedPageType() PageType {
	if c == ChipHealth {
		return PageArticle
	}
	return PageProduct
}

// IntentScore is a 0-1 confidence with the weighted contribution of every signal.
type IntentScore struct {
	Value      float64            `json:"value" yaml:"value"`
	Components map[string]float64 `json:"components" yaml:"components"`
}

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// FailReason explains why a subject needs user confirmation.
type FailReason string

const (
	FailNone                FailReason = "none"
	FailBrandOnly           FailReason = "brand_only"
	FailContainsGenericTerm FailReason = "contains_generic_term"
	FailTooShort            FailReason = "too_short"
)

// Subject is the candidate product name or health topic for a chip.
type Subject struct {
	Text             string     `json:"text" yaml:"text"`
	Confidence       Confidence `json:"confidence" yaml:"confidence"`
	NeedsConfirm     bool       `json:"needs_confirm" yaml:"needs_confirm"`
	FailReason       FailReason `json:"fail_reason" yaml:"fail_reason"`
	ExtractionMethod string     `json:"extraction_method" yaml:"extraction_method"`
	Source           string     `json:"source,omitempty" yaml:"source,omitempty"`   // structured_data, heading, title
	Variant          string     `json:"variant,omitempty" yaml:"variant,omitempty"` // selected product variant, if any
}

// DecisionState is the terminal state of one evaluation.
type DecisionState string

const (
	StateReady        DecisionState = "ready"
	StateNeedsConfirm DecisionState = "needs_confirm"
	StateBlocked      DecisionState = "blocked"
)

// BlockReason is set on every blocked decision.
type BlockReason string

const (
	ReasonWrongPageType BlockReason = "wrong_page_type"
	ReasonLowIntent     BlockReason = "low_intent"
	ReasonURLCooldown   BlockReason = "url_cooldown"
	ReasonUserDismissed BlockReason = "user_dismissed"
)

// ChipDecision is the single explainable result of the gate pipeline.
// Fields belonging to gates that never ran stay at their zero value.
type ChipDecision struct {
	ChipType     ChipType           `json:"chip_type" yaml:"chip_type"`
	Show         bool               `json:"show" yaml:"show"`
	State        DecisionState      `json:"state" yaml:"state"`
	Reason       BlockReason        `json:"reason,omitempty" yaml:"reason,omitempty"`
	PageType     PageType           `json:"page_type" yaml:"page_type"`
	Score        *float64           `json:"score,omitempty" yaml:"score,omitempty"`
	Components   map[string]float64 `json:"components,omitempty" yaml:"components,omitempty"`
	Subject      string             `json:"subject,omitempty" yaml:"subject,omitempty"`
	Variant      string             `json:"variant,omitempty" yaml:"variant,omitempty"`
	FailReason   FailReason         `json:"fail_reason,omitempty" yaml:"fail_reason,omitempty"`
	Method       string             `json:"extraction_method,omitempty" yaml:"extraction_method,omitempty"`
	CacheKey     string             `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	CachedResult json.RawMessage    `json:"cached_result,omitempty" yaml:"-"`

	// PageLoad identifies the page load the decision was made on.
	PageLoad uint64 `json:"-" yaml:"-"`
}

// HasCachedResult reports whether a fresh scan result was attached.
func (d ChipDecision) HasCachedResult() bool {
	return len(d.CachedResult) > 0
}
