package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/chip-gate/internal/common"
	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/chip"
	"github.com/dtnitsch/chip-gate/pkg/events"
	"github.com/dtnitsch/chip-gate/pkg/fetcher"
	"github.com/dtnitsch/chip-gate/pkg/snapshot"
)

// Output is the YAML document printed by the evaluate command.
type Output struct {
	URL           string                  `yaml:"url"`
	PageType      models.PageType         `yaml:"page_type"`
	Rule          string                  `yaml:"classifier_rule"`
	Language      string                  `yaml:"language,omitempty"`
	Decisions     []models.ChipDecision   `yaml:"decisions"`
	CachedResults map[models.ChipType]any `yaml:"cached_results,omitempty"`
	Events        []events.Event          `yaml:"events,omitempty"`
	Snapshot      *models.PageSnapshot    `yaml:"snapshot,omitempty"`
}

// newConfirmer is replaced in tests.
var newConfirmer = func() chip.Confirmer { return PromptConfirmer{} }

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Page URL", Required: true},
	&cli.StringFlag{Name: "html-file", Usage: "Read page HTML from a file instead of fetching"},
	&cli.BoolFlag{Name: "render", Usage: "Render the page in headless Chrome before evaluating"},
	&cli.StringFlag{Name: "chrome-path", Usage: "Chrome/Chromium binary for --render"},
	&cli.StringFlag{Name: "chip", Value: "all", Usage: "Chip type: product, health, or all"},
	&cli.BoolFlag{Name: "confirm", Usage: "Prompt to confirm ambiguous subjects"},
	&cli.BoolFlag{Name: "mark-shown", Usage: "Start the URL cooldown for chips that would be shown"},
	&cli.StringFlag{Name: "scan-file", Usage: "Cache this JSON scan result for READY chips"},
	&cli.BoolFlag{Name: "explain", Usage: "Include emitted analytics events and the page snapshot"},
}

func EvaluateAction(c *cli.Context) error {
	ctx := c.Context
	pageURL, err := common.ValidatePageURL(c.String("url"))
	if err != nil {
		return err
	}
	chipTypes, err := parseChips(c.String("chip"))
	if err != nil {
		return err
	}

	rt, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Warn("failed to close runtime", "error", err)
		}
	}()

	html, err := loadHTML(c, pageURL)
	if err != nil {
		return err
	}
	snap, err := snapshot.Build(pageURL, html)
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	var confirmer chip.Confirmer
	if c.Bool("confirm") {
		confirmer = newConfirmer()
	}
	manager := rt.Manager(confirmer)
	manager.SetSnapshot(snap)

	// Chip types share no decision state, only the store.
	decisions := make([]models.ChipDecision, len(chipTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, ct := range chipTypes {
		g.Go(func() error {
			d, err := manager.ShouldShowChip(gctx, ct)
			if err != nil {
				return fmt.Errorf("%s chip: %w", ct, err)
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Prompts are interactive, so they run one at a time.
	if confirmer != nil {
		for i, d := range decisions {
			resolved, err := manager.Resolve(ctx, d)
			if err != nil {
				rt.Logger.Warn("confirmation failed, chip not shown", "chip_type", d.ChipType, "error", err)
				continue
			}
			decisions[i] = resolved
		}
	}

	if path := c.String("scan-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read scan file: %w", err)
		}
		for _, d := range decisions {
			if d.State != models.StateReady {
				continue
			}
			if err := manager.CacheScan(ctx, d, json.RawMessage(data)); err != nil {
				return err
			}
		}
	}

	if c.Bool("mark-shown") {
		for _, d := range decisions {
			if d.State == models.StateReady {
				// Failure leaves the chip without a cooldown; it may show again.
				_ = manager.MarkShown(ctx, d.ChipType)
			}
		}
	}

	classification := rt.Classifier.Explain(snap)
	out := Output{
		URL:       snap.URL,
		PageType:  classification.Type,
		Rule:      classification.Rule,
		Language:  snap.Language,
		Decisions: decisions,
	}
	for _, d := range decisions {
		if !d.HasCachedResult() {
			continue
		}
		var v any
		if err := json.Unmarshal(d.CachedResult, &v); err == nil {
			if out.CachedResults == nil {
				out.CachedResults = make(map[models.ChipType]any)
			}
			out.CachedResults[d.ChipType] = v
		}
	}
	if c.Bool("explain") {
		out.Events = rt.Recorder.Events()
		out.Snapshot = snap
	}
	return common.WriteYAML(c.App.Writer, out)
}

func parseChips(s string) ([]models.ChipType, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || strings.TrimSpace(s) == "" {
		return models.ChipTypes, nil
	}
	var out []models.ChipType
	for _, part := range strings.Split(s, ",") {
		ct, err := models.ParseChipType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

func loadHTML(c *cli.Context, pageURL string) (string, error) {
	if path := c.String("html-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read HTML file: %w", err)
		}
		return string(data), nil
	}
	if c.Bool("render") {
		r := fetcher.NewRenderer()
		r.ExecPath = c.String("chrome-path")
		return r.Render(c.Context, pageURL)
	}
	return fetcher.NewFetcher().GetHTML(c.Context, pageURL)
}
