// Package chip runs the gate pipeline and decides whether a chip is shown.
//
// One evaluation moves PENDING to exactly one of BLOCKED, NEEDS_CONFIRM or READY and
// emits exactly one analytics event. Gates run strictly in order:
//
//	page type -> cooldown -> intent -> subject -> cache
package chip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/cooldown"
	"github.com/dtnitsch/chip-gate/pkg/events"
	"github.com/dtnitsch/chip-gate/pkg/intent"
	"github.com/dtnitsch/chip-gate/pkg/resultcache"
)

// ErrNoSnapshot is returned when no page has been loaded with SetSnapshot.
var ErrNoSnapshot = errors.New("chip: no page snapshot loaded")

// ErrStaleDecision is returned when a decision is resolved after a new page was loaded.
var ErrStaleDecision = errors.New("chip: decision belongs to a previous page load")

// PageClassifier is Gate 0.
type PageClassifier interface {
	Classify(snap *models.PageSnapshot) models.PageType
}

// IntentScorer is Gate 1.
type IntentScorer interface {
	Evaluate(chipType models.ChipType, snap *models.PageSnapshot) intent.Result
}

// SubjectExtractor is Gate 2.
type SubjectExtractor interface {
	ExtractSubject(chipType models.ChipType, snap *models.PageSnapshot) models.Subject
}

// CooldownStore suppresses chips that were recently shown or dismissed.
type CooldownStore interface {
	CheckCooldowns(ctx context.Context, chipType models.ChipType, pageURL string) cooldown.Status
	SetURLCooldown(ctx context.Context, chipType models.ChipType, pageURL string) error
}

// ResultCache holds recent scan results.
type ResultCache interface {
	GetCachedScan(ctx context.Context, key string) (json.RawMessage, bool)
	SetCachedScan(ctx context.Context, key string, data json.RawMessage) error
}

// Deps are the collaborators of a Manager. Confirmer, Sink and Logger are optional.
type Deps struct {
	Classifier PageClassifier
	Scorer     IntentScorer
	Extractor  SubjectExtractor
	Cooldowns  CooldownStore
	Cache      ResultCache
	Confirmer  Confirmer
	Sink       events.Sink
	Logger     *slog.Logger
}

// Manager is the ChipManager orchestrator. It is safe for concurrent use;
// different chip types evaluate independently.
type Manager struct {
	classifier PageClassifier
	scorer     IntentScorer
	extractor  SubjectExtractor
	cooldowns  CooldownStore
	cache      ResultCache
	confirmer  Confirmer
	sink       events.Sink
	logger     *slog.Logger

	group singleflight.Group

	mu   sync.Mutex
	snap *models.PageSnapshot
	load uint64
	memo map[models.ChipType]models.ChipDecision
}

// New creates a Manager. Classifier, Scorer, Extractor, Cooldowns and Cache are required.
func New(d Deps) *Manager {
	if d.Sink == nil {
		d.Sink = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		classifier: d.Classifier,
		scorer:     d.Scorer,
		extractor:  d.Extractor,
		cooldowns:  d.Cooldowns,
		cache:      d.Cache,
		confirmer:  d.Confirmer,
		sink:       d.Sink,
		logger:     d.Logger,
		memo:       make(map[models.ChipType]models.ChipDecision),
	}
}

// SetSnapshot starts a new page load. Memoized decisions of the previous page are dropped.
func (m *Manager) SetSnapshot(snap *models.PageSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.load++
	m.memo = make(map[models.ChipType]models.ChipDecision)
}

// Snapshot returns the current page snapshot, or nil.
func (m *Manager) Snapshot() *models.PageSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// ShouldShowChip evaluates chipType against the current page once per page load.
// Later calls return the memoized decision without emitting events.
func (m *Manager) ShouldShowChip(ctx context.Context, chipType models.ChipType) (models.ChipDecision, error) {
	m.mu.Lock()
	snap, load := m.snap, m.load
	if d, ok := m.memo[chipType]; ok {
		m.mu.Unlock()
		return d, nil
	}
	m.mu.Unlock()

	if snap == nil {
		return models.ChipDecision{}, ErrNoSnapshot
	}

	key := strconv.FormatUint(load, 10) + ":" + string(chipType)
	v, _, _ := m.group.Do(key, func() (any, error) {
		m.mu.Lock()
		if d, ok := m.memo[chipType]; ok && m.load == load {
			m.mu.Unlock()
			return d, nil
		}
		m.mu.Unlock()

		d := m.Evaluate(ctx, chipType, snap)
		d.PageLoad = load
		m.remember(load, d)
		return d, nil
	})
	return v.(models.ChipDecision), nil
}

// Reevaluate forgets the memoized decision for chipType and runs the pipeline again.
// It is used after an unhide or a confirmation changes suppression state.
func (m *Manager) Reevaluate(ctx context.Context, chipType models.ChipType) (models.ChipDecision, error) {
	m.mu.Lock()
	delete(m.memo, chipType)
	m.mu.Unlock()
	return m.ShouldShowChip(ctx, chipType)
}

// Evaluate runs the gate pipeline for chipType over snap. It never fails;
// collaborator faults degrade to a miss.
func (m *Manager) Evaluate(ctx context.Context, chipType models.ChipType, snap *models.PageSnapshot) models.ChipDecision {
	if snap == nil {
		snap = &models.PageSnapshot{}
	}
	d := models.ChipDecision{ChipType: chipType, State: models.StateBlocked}

	// Gate 0
	d.PageType = m.classifier.Classify(snap)
	if d.PageType != chipType.AllowedPageType() {
		d.Reason = models.ReasonWrongPageType
		m.sink.Emit(events.New(events.GateBlocked,
			"gate", 0,
			"chipType", string(chipType),
			"reason", string(d.Reason),
			"pageType", string(d.PageType),
		))
		m.logDecision(d, snap)
		return d
	}

	// The store emits chip_cooldown_active itself.
	if st := m.cooldowns.CheckCooldowns(ctx, chipType, snap.URL); st.Blocked {
		d.Reason = st.Reason
		m.logDecision(d, snap)
		return d
	}

	// Gate 1
	res := m.scorer.Evaluate(chipType, snap)
	score := res.Score.Value
	d.Score = &score
	d.Components = res.Score.Components
	if !res.Passed {
		d.Reason = models.ReasonLowIntent
		m.sink.Emit(events.New(events.GateBlocked,
			"gate", 1,
			"chipType", string(chipType),
			"reason", string(d.Reason),
			"score", score,
			"borderline", res.Borderline,
		))
		m.logDecision(d, snap)
		return d
	}

	// Gate 2
	subj := m.extractor.ExtractSubject(chipType, snap)
	d.Subject = subj.Text
	d.Variant = subj.Variant
	d.FailReason = subj.FailReason
	d.Method = subj.ExtractionMethod
	if subj.NeedsConfirm {
		d.State = models.StateNeedsConfirm
		d.Show = true
		m.sink.Emit(events.New(events.AssistShown,
			"chipType", string(chipType),
			"subject", subj.Text,
			"reason", string(subj.FailReason),
		))
		m.logDecision(d, snap)
		return d
	}

	d = m.ready(ctx, d, snap)
	m.sink.Emit(events.New(events.GatesPassed,
		"chipType", string(chipType),
		"subject", d.Subject,
		"cached", d.HasCachedResult(),
	))
	m.logDecision(d, snap)
	return d
}

// ready runs the cache step and marks d READY.
func (m *Manager) ready(ctx context.Context, d models.ChipDecision, snap *models.PageSnapshot) models.ChipDecision {
	d.State = models.StateReady
	d.Show = true
	d.Reason = ""
	d.FailReason = models.FailNone
	d.CacheKey = CacheKey(d.ChipType, snap, d.Subject, d.Variant)
	d.CachedResult = nil
	if data, ok := m.cache.GetCachedScan(ctx, d.CacheKey); ok {
		d.CachedResult = data
	}
	return d
}

// CacheKey returns the scan cache key for a subject on snap. Product keys carry the
// selected variant once, as the key suffix; health keys never do.
func CacheKey(chipType models.ChipType, snap *models.PageSnapshot, subject, variant string) string {
	if chipType != models.ChipProduct {
		variant = ""
	} else if variant == "" && len(snap.VariantLabels) > 0 {
		variant = snap.VariantLabels[0]
	}
	base, v := resultcache.Normalize(subject), resultcache.Normalize(variant)
	if v != "" && strings.HasSuffix(base, "_"+v) {
		subject = strings.TrimSuffix(base, "_"+v)
	}
	return resultcache.Key(chipType, snap.Host, subject, variant)
}

// MarkShown records that the chip was displayed on the current page, starting the URL cooldown.
func (m *Manager) MarkShown(ctx context.Context, chipType models.ChipType) error {
	snap := m.Snapshot()
	if snap == nil {
		return ErrNoSnapshot
	}
	if err := m.cooldowns.SetURLCooldown(ctx, chipType, snap.URL); err != nil {
		m.logger.Warn("Failed to set URL cooldown", "chip_type", chipType, "url", snap.URL, "error", err)
		return err
	}
	return nil
}

// CacheScan stores a scan result for a READY decision.
func (m *Manager) CacheScan(ctx context.Context, d models.ChipDecision, data json.RawMessage) error {
	if d.State != models.StateReady || d.CacheKey == "" {
		return fmt.Errorf("cannot cache scan for %s decision in state %s", d.ChipType, d.State)
	}
	if err := m.cache.SetCachedScan(ctx, d.CacheKey, data); err != nil {
		m.logger.Warn("Failed to cache scan", "key", d.CacheKey, "error", err)
		return err
	}
	return nil
}

func (m *Manager) remember(load uint64, d models.ChipDecision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.load == load {
		m.memo[d.ChipType] = d
	}
}

func (m *Manager) logDecision(d models.ChipDecision, snap *models.PageSnapshot) {
	attrs := []any{
		"chip_type", d.ChipType,
		"state", d.State,
		"show", d.Show,
		"page_type", d.PageType,
		"url", snap.URL,
	}
	if d.Reason != "" {
		attrs = append(attrs, "reason", d.Reason)
	}
	if d.Score != nil {
		attrs = append(attrs, "score", *d.Score)
	}
	if strings.TrimSpace(d.Subject) != "" {
		attrs = append(attrs, "subject", d.Subject)
	}
	m.logger.Debug("Chip decision", attrs...)
}
