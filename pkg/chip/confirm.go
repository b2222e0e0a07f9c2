package chip

import (
	"context"
	"fmt"
	"strings"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/events"
)

// Action is the user's answer to a confirmation prompt.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDismiss Action = "dismiss"
)

// ConfirmResult is returned by a Confirmer. Subject is the confirmed, possibly edited, text.
type ConfirmResult struct {
	Action  Action
	Subject string
	Edited  bool
}

// Confirmer asks the user to resolve an ambiguous subject.
type Confirmer interface {
	Confirm(ctx context.Context, chipType models.ChipType, subject models.Subject) (ConfirmResult, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, chipType models.ChipType, subject models.Subject) (ConfirmResult, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, chipType models.ChipType, subject models.Subject) (ConfirmResult, error) {
	return f(ctx, chipType, subject)
}

// Resolve drives the confirmation flow for a NEEDS_CONFIRM decision and returns the
// terminal outcome. Other decisions are returned unchanged.
//
// On confirm the pipeline resumes at the cache step with the user's subject. On dismiss
// the chip is BLOCKED for this page without setting a cooldown.
func (m *Manager) Resolve(ctx context.Context, d models.ChipDecision) (models.ChipDecision, error) {
	if d.State != models.StateNeedsConfirm || m.confirmer == nil {
		return d, nil
	}
	m.mu.Lock()
	snap, load := m.snap, m.load
	m.mu.Unlock()
	if snap == nil {
		return d, ErrNoSnapshot
	}
	if d.PageLoad != load {
		return d, ErrStaleDecision
	}

	prefilled := models.Subject{
		Text:             d.Subject,
		NeedsConfirm:     true,
		FailReason:       d.FailReason,
		ExtractionMethod: d.Method,
		Variant:          d.Variant,
		Confidence:       models.ConfidenceLow,
	}
	res, err := m.confirmer.Confirm(ctx, d.ChipType, prefilled)
	if err != nil {
		return d, fmt.Errorf("confirmation for %s chip failed: %w", d.ChipType, err)
	}

	confirmed := strings.TrimSpace(res.Subject)
	if confirmed == "" {
		confirmed = d.Subject
	}

	var out models.ChipDecision
	if res.Action != ActionConfirm || confirmed == "" {
		m.sink.Emit(events.New(events.AssistDismissed,
			"chipType", string(d.ChipType),
			"subject", d.Subject,
		))
		out = d
		out.State = models.StateBlocked
		out.Show = false
		out.Reason = models.ReasonUserDismissed
	} else {
		m.sink.Emit(events.New(events.AssistConfirmed,
			"chipType", string(d.ChipType),
			"originalSubject", d.Subject,
			"confirmedSubject", confirmed,
			"edited", res.Edited || confirmed != d.Subject,
		))
		out = d
		out.Subject = confirmed
		out.Method = "user_confirmed"
		out = m.ready(ctx, out, snap)
	}

	m.logDecision(out, snap)
	m.remember(load, out)
	return out, nil
}
