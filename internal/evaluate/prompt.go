package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/chip"
)

const (
	choiceConfirm = "Confirm"
	choiceEdit    = "Edit"
	choiceDismiss = "Dismiss"
)

// PromptConfirmer asks on the terminal. Ctrl-C counts as a dismissal.
type PromptConfirmer struct{}

func (PromptConfirmer) Confirm(ctx context.Context, chipType models.ChipType, subject models.Subject) (chip.ConfirmResult, error) {
	if err := ctx.Err(); err != nil {
		return chip.ConfirmResult{}, err
	}

	label := fmt.Sprintf("%s chip subject %q needs confirmation (%s)", chipType, subject.Text, subject.FailReason)
	sel := promptui.Select{
		Label: label,
		Items: []string{choiceConfirm, choiceEdit, choiceDismiss},
	}
	_, choice, err := sel.Run()
	if err != nil {
		return interrupted(err)
	}

	switch choice {
	case choiceConfirm:
		if strings.TrimSpace(subject.Text) == "" {
			return editSubject(subject)
		}
		return chip.ConfirmResult{Action: chip.ActionConfirm, Subject: subject.Text}, nil
	case choiceEdit:
		return editSubject(subject)
	default:
		return chip.ConfirmResult{Action: chip.ActionDismiss, Subject: subject.Text}, nil
	}
}

func editSubject(subject models.Subject) (chip.ConfirmResult, error) {
	prompt := promptui.Prompt{
		Label:     "Subject",
		Default:   subject.Text,
		AllowEdit: true,
		Validate:  validateSubject,
	}
	text, err := prompt.Run()
	if err != nil {
		return interrupted(err)
	}
	text = strings.TrimSpace(text)
	return chip.ConfirmResult{Action: chip.ActionConfirm, Subject: text, Edited: text != subject.Text}, nil
}

func validateSubject(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("subject cannot be empty")
	}
	return nil
}

func interrupted(err error) (chip.ConfirmResult, error) {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
		return chip.ConfirmResult{Action: chip.ActionDismiss}, nil
	}
	return chip.ConfirmResult{}, fmt.Errorf("prompt failed: %w", err)
}
