package state

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/chip-gate/internal/common"
	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/cooldown"
	"github.com/dtnitsch/chip-gate/pkg/urlnorm"
)

// ChipStatus is one chip type's suppression state on a URL.
type ChipStatus struct {
	ChipType    models.ChipType    `yaml:"chip_type"`
	Blocked     bool               `yaml:"blocked"`
	Reason      models.BlockReason `yaml:"reason,omitempty"`
	RemainingMs int64              `yaml:"remaining_ms,omitempty"`
}

// StatusOutput is printed by the status command.
type StatusOutput struct {
	URL       string                   `yaml:"url"`
	Canonical string                   `yaml:"canonical_url"`
	Dismissal cooldown.DismissalStatus `yaml:"dismissal"`
	Chips     []ChipStatus             `yaml:"chips"`
}

var URLFlag = &cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Page URL", Required: true}

var ChipFlag = &cli.StringFlag{Name: "chip", Usage: "Chip type: product or health", Required: true}

func DismissAction(c *cli.Context) error {
	return withChip(c, func(rt *common.Runtime, ct models.ChipType, pageURL string) error {
		if err := rt.Cooldowns.DismissChipOnOrigin(c.Context, ct, pageURL); err != nil {
			return fmt.Errorf("failed to dismiss %s chip: %w", ct, err)
		}
		origin, _ := urlnorm.Origin(pageURL)
		return common.WriteYAML(c.App.Writer, map[string]any{
			"dismissed": string(ct),
			"origin":    origin,
			"for":       rt.Config.OriginDismissal.String(),
		})
	})
}

func UnhideAction(c *cli.Context) error {
	return withChip(c, func(rt *common.Runtime, ct models.ChipType, pageURL string) error {
		if err := rt.Cooldowns.UnhideChipOnOrigin(c.Context, ct, pageURL); err != nil {
			return fmt.Errorf("failed to unhide %s chip: %w", ct, err)
		}
		origin, _ := urlnorm.Origin(pageURL)
		return common.WriteYAML(c.App.Writer, map[string]any{
			"unhidden": string(ct),
			"origin":   origin,
		})
	})
}

func StatusAction(c *cli.Context) error {
	pageURL, err := common.ValidatePageURL(c.String("url"))
	if err != nil {
		return err
	}
	rt, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	dismissal, err := rt.Cooldowns.PeekDismissalStatus(c.Context, pageURL)
	if err != nil {
		return err
	}
	out := StatusOutput{
		URL:       pageURL,
		Canonical: urlnorm.Canonical(pageURL),
		Dismissal: dismissal,
	}
	for _, ct := range models.ChipTypes {
		st := rt.Cooldowns.PeekCooldowns(c.Context, ct, pageURL)
		out.Chips = append(out.Chips, ChipStatus{
			ChipType:    ct,
			Blocked:     st.Blocked,
			Reason:      st.Reason,
			RemainingMs: st.Remaining.Milliseconds(),
		})
	}
	return common.WriteYAML(c.App.Writer, out)
}

func CacheClearAction(c *cli.Context) error {
	host := strings.ToLower(strings.TrimSpace(c.String("host")))
	if host == "" {
		return fmt.Errorf("--host is required")
	}
	if strings.Contains(host, "://") {
		h, err := urlnorm.Hostname(host)
		if err != nil {
			return err
		}
		host = h
	}

	rt, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var removed int
	if c.Bool("product-only") {
		removed, err = rt.Cache.ClearProductCache(c.Context, host)
	} else {
		removed, err = rt.Cache.ClearHostnameCache(c.Context, host)
	}
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return common.WriteYAML(c.App.Writer, map[string]any{
		"host":    host,
		"removed": removed,
	})
}

func withChip(c *cli.Context, fn func(rt *common.Runtime, ct models.ChipType, pageURL string) error) error {
	pageURL, err := common.ValidatePageURL(c.String("url"))
	if err != nil {
		return err
	}
	ct, err := models.ParseChipType(c.String("chip"))
	if err != nil {
		return err
	}
	rt, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt, ct, pageURL)
}
