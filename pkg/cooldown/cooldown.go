// Package cooldown tracks time-boxed chip suppression per URL and per origin.
//
// Keys:
//
//	chip_cooldown:{chipType}:{canonicalURL}  set when a chip is displayed
//	chip_dismissed:{chipType}:{origin}       set when the user dismisses a chip type on a site
//
// Values are decimal epoch milliseconds. Expired entries are deleted on the next read.
// Storage failures fail open: the check reports "not blocked".
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/events"
	"github.com/dtnitsch/chip-gate/pkg/kvstore"
	"github.com/dtnitsch/chip-gate/pkg/urlnorm"
)

const (
	urlPrefix    = "chip_cooldown:"
	originPrefix = "chip_dismissed:"
)

// Status is the result of a cooldown check.
type Status struct {
	Blocked   bool               `json:"blocked" yaml:"blocked"`
	Reason    models.BlockReason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Remaining time.Duration      `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

// DismissalStatus reports which chip types are dismissed on an origin.
type DismissalStatus struct {
	Health        bool          `json:"health" yaml:"health"`
	Product       bool          `json:"product" yaml:"product"`
	Origin        string        `json:"origin" yaml:"origin"`
	HealthExpiry  time.Duration `json:"health_remaining,omitempty" yaml:"health_remaining,omitempty"`
	ProductExpiry time.Duration `json:"product_remaining,omitempty" yaml:"product_remaining,omitempty"`
}

// Store is the CooldownStore collaborator.
type Store struct {
	kv         kvstore.Store
	urlTTL     time.Duration
	dismissTTL time.Duration
	sink       events.Sink
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink sets the analytics sink.
func WithSink(sink events.Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// New creates a Store over kv using the TTLs in cfg.
func New(kv kvstore.Store, cfg models.GateConfig, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		urlTTL:     cfg.URLCooldown,
		dismissTTL: cfg.OriginDismissal,
		sink:       events.Nop{},
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URLKey returns the URL cooldown key for pageURL.
func URLKey(chipType models.ChipType, pageURL string) string {
	return urlPrefix + string(chipType) + ":" + urlnorm.Canonical(pageURL)
}

// OriginKey returns the dismissal key for an origin.
func OriginKey(chipType models.ChipType, origin string) string {
	return originPrefix + string(chipType) + ":" + origin
}

// CheckCooldowns reports whether chipType is suppressed on pageURL.
// An origin dismissal takes precedence over a URL cooldown.
func (s *Store) CheckCooldowns(ctx context.Context, chipType models.ChipType, pageURL string) Status {
	st, cooldownType := s.check(ctx, chipType, pageURL, true)
	if st.Blocked {
		s.emitActive(chipType, cooldownType, st.Remaining)
	}
	return st
}

// PeekCooldowns is CheckCooldowns for diagnostics: it emits no events and leaves
// expired entries in place.
func (s *Store) PeekCooldowns(ctx context.Context, chipType models.ChipType, pageURL string) Status {
	st, _ := s.check(ctx, chipType, pageURL, false)
	return st
}

func (s *Store) check(ctx context.Context, chipType models.ChipType, pageURL string, prune bool) (Status, string) {
	if origin, err := urlnorm.Origin(pageURL); err == nil {
		if remaining, ok := s.lookup(ctx, OriginKey(chipType, origin), s.dismissTTL, prune); ok {
			return Status{Blocked: true, Reason: models.ReasonUserDismissed, Remaining: remaining}, "origin"
		}
	}
	if remaining, ok := s.lookup(ctx, URLKey(chipType, pageURL), s.urlTTL, prune); ok {
		return Status{Blocked: true, Reason: models.ReasonURLCooldown, Remaining: remaining}, "url"
	}
	return Status{}, ""
}

// SetURLCooldown suppresses chipType on pageURL for the URL cooldown window.
func (s *Store) SetURLCooldown(ctx context.Context, chipType models.ChipType, pageURL string) error {
	key := URLKey(chipType, pageURL)
	if err := s.stamp(ctx, key); err != nil {
		return err
	}
	s.sink.Emit(events.New(events.CooldownSet,
		"chipType", string(chipType),
		"url", urlnorm.Canonical(pageURL),
		"duration", s.urlTTL.Milliseconds(),
	))
	return nil
}

// DismissChipOnOrigin suppresses chipType on the whole origin of pageURL.
func (s *Store) DismissChipOnOrigin(ctx context.Context, chipType models.ChipType, pageURL string) error {
	origin, err := urlnorm.Origin(pageURL)
	if err != nil {
		return err
	}
	if err := s.stamp(ctx, OriginKey(chipType, origin)); err != nil {
		return err
	}
	s.sink.Emit(events.New(events.DismissedByUser,
		"chipType", string(chipType),
		"origin", origin,
		"duration", s.dismissTTL.Milliseconds(),
	))
	return nil
}

// UnhideChipOnOrigin removes a dismissal. Removing an absent dismissal is not an error.
func (s *Store) UnhideChipOnOrigin(ctx context.Context, chipType models.ChipType, pageURL string) error {
	origin, err := urlnorm.Origin(pageURL)
	if err != nil {
		return err
	}
	key := OriginKey(chipType, origin)
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	s.sink.Emit(events.New(events.UnhiddenByUser,
		"chipType", string(chipType),
		"origin", origin,
	))
	return nil
}

// GetDismissalStatus reports the dismissal state of both chip types on the origin of pageURL.
func (s *Store) GetDismissalStatus(ctx context.Context, pageURL string) (DismissalStatus, error) {
	return s.dismissals(ctx, pageURL, true)
}

// PeekDismissalStatus is GetDismissalStatus without deleting expired entries.
func (s *Store) PeekDismissalStatus(ctx context.Context, pageURL string) (DismissalStatus, error) {
	return s.dismissals(ctx, pageURL, false)
}

func (s *Store) dismissals(ctx context.Context, pageURL string, prune bool) (DismissalStatus, error) {
	origin, err := urlnorm.Origin(pageURL)
	if err != nil {
		return DismissalStatus{}, err
	}
	status := DismissalStatus{Origin: origin}
	status.ProductExpiry, status.Product = s.lookup(ctx, OriginKey(models.ChipProduct, origin), s.dismissTTL, prune)
	status.HealthExpiry, status.Health = s.lookup(ctx, OriginKey(models.ChipHealth, origin), s.dismissTTL, prune)
	return status, nil
}

// lookup returns the remaining window for key when it is still live.
// With prune set, expired or corrupt entries are deleted.
func (s *Store) lookup(ctx context.Context, key string, ttl time.Duration, prune bool) (time.Duration, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn("Cooldown read failed, treating as inactive", "key", key, "error", err)
		}
		return 0, false
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if prune {
			s.logger.Warn("Discarding corrupt cooldown entry", "key", key, "value", raw)
			s.remove(ctx, key)
		}
		return 0, false
	}

	elapsed := s.now().Sub(time.UnixMilli(ms))
	if elapsed >= ttl {
		if prune {
			s.remove(ctx, key)
		}
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return ttl - elapsed, true
}

func (s *Store) stamp(ctx context.Context, key string) error {
	value := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete expired cooldown", "key", key, "error", err)
	}
}

func (s *Store) emitActive(chipType models.ChipType, cooldownType string, remaining time.Duration) {
	s.sink.Emit(events.New(events.CooldownActive,
		"chipType", string(chipType),
		"cooldownType", cooldownType,
		"remainingMs", remaining.Milliseconds(),
	))
}
