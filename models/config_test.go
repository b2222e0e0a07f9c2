package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGateConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadGateConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadGateConfig() error = %v", err)
	}
	if cfg.ProductThreshold != 0.85 || cfg.HealthThreshold != 0.75 {
		t.Errorf("thresholds = %v/%v, want 0.85/0.75", cfg.ProductThreshold, cfg.HealthThreshold)
	}
	if cfg.CacheMaxEntries != 50 {
		t.Errorf("CacheMaxEntries = %d, want 50", cfg.CacheMaxEntries)
	}
}

func TestLoadGateConfig_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	content := "health_threshold: 0.7\nurl_cooldown: 10m\ngeneric_terms: [\"stuff\"]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGateConfig(path)
	if err != nil {
		t.Fatalf("LoadGateConfig() error = %v", err)
	}
	if cfg.HealthThreshold != 0.7 {
		t.Errorf("HealthThreshold = %v, want 0.7", cfg.HealthThreshold)
	}
	if cfg.URLCooldown != 10*time.Minute {
		t.Errorf("URLCooldown = %v, want 10m", cfg.URLCooldown)
	}
	if len(cfg.GenericTerms) != 1 || cfg.GenericTerms[0] != "stuff" {
		t.Errorf("GenericTerms = %v, want [stuff]", cfg.GenericTerms)
	}
	// Untouched fields keep their defaults
	if cfg.ProductThreshold != 0.85 {
		t.Errorf("ProductThreshold = %v, want 0.85", cfg.ProductThreshold)
	}
}

func TestLoadGateConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	if err := os.WriteFile(path, []byte("product_threshold: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGateConfig(path); err == nil {
		t.Error("LoadGateConfig() expected error for threshold > 1")
	}
}

func TestParseChipType(t *testing.T) {
	tests := []struct {
		in      string
		want    ChipType
		wantErr bool
	}{
		{"product", ChipProduct, false},
		{" Health ", ChipHealth, false},
		{"video", "", true},
	}
	for _, tt := range tests {
		got, err := ParseChipType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChipType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseChipType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProductItemCount(t *testing.T) {
	snap := &PageSnapshot{StructuredData: []StructuredItem{
		{Type: "Product", Name: "Widget Pro"},
		{Type: "http://schema.org/Product", Name: "widget pro"},
		{Type: "Offer"},
		{Type: "BreadcrumbList"},
	}}
	if got := snap.ProductItemCount(); got != 1 {
		t.Errorf("ProductItemCount() = %d, want 1", got)
	}
	if !snap.HasCommerceSchema() {
		t.Error("HasCommerceSchema() = false, want true")
	}
	if snap.HasContentSchema() {
		t.Error("HasContentSchema() = true, want false")
	}
}
