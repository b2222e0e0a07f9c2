package subject

import (
	"strings"

	"github.com/dtnitsch/chip-gate/models"
)

// MethodGeneric marks a subject extracted without a site adapter.
const MethodGeneric = "generic"

// Candidate is subject text before normalization and validation.
type Candidate struct {
	Text    string
	Source  string
	Variant string
}

// Adapter is a per-site transform applied to the generic candidate.
type Adapter struct {
	Name      string
	Transform func(snap *models.PageSnapshot, chipType models.ChipType, base Candidate) Candidate
}

// Registry maps hostnames to adapters. Lookups match the host or any parent domain.
type Registry struct {
	byHost map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byHost: make(map[string]Adapter)}
}

// DefaultRegistry returns the registry with every built-in site adapter.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	amazon := Adapter{Name: "amazon", Transform: appendVariant}
	for _, host := range []string{
		"amazon.com", "amazon.co.uk", "amazon.ca", "amazon.de", "amazon.fr", "amazon.it",
		"amazon.es", "amazon.in", "amazon.com.au", "amazon.co.jp", "amazon.com.mx",
	} {
		r.Register(host, amazon)
	}
	r.Register("walmart.com", Adapter{Name: "walmart", Transform: appendVariant})
	r.Register("target.com", Adapter{Name: "target", Transform: appendVariant})
	return r
}

// Register binds an adapter to a host and its subdomains.
func (r *Registry) Register(host string, adapter Adapter) {
	r.byHost[strings.ToLower(strings.TrimPrefix(host, "www."))] = adapter
}

// Lookup finds the adapter for host, walking up parent domains.
func (r *Registry) Lookup(host string) (Adapter, bool) {
	host = strings.ToLower(host)
	for host != "" {
		if adapter, ok := r.byHost[host]; ok {
			return adapter, true
		}
		i := strings.Index(host, ".")
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return Adapter{}, false
}

// appendVariant adds the selected size/color/style labels to a product title.
func appendVariant(snap *models.PageSnapshot, chipType models.ChipType, base Candidate) Candidate {
	if chipType != models.ChipProduct || len(snap.VariantLabels) == 0 {
		return base
	}

	var labels []string
	lowerBase := strings.ToLower(base.Text)
	for _, label := range snap.VariantLabels {
		if label == "" || strings.Contains(lowerBase, strings.ToLower(label)) {
			continue
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return base
	}

	variant := strings.Join(labels, " ")
	return Candidate{
		Text:    strings.TrimSpace(base.Text + " " + variant),
		Source:  base.Source,
		Variant: variant,
	}
}
