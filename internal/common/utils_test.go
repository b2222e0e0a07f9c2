package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  https://example.com/p/1  ", "https://example.com/p/1"},
		{"https://example.com,", "https://example.com"},
		{"(https://example.com)", "https://example.com"},
		{"[shop](https://shop.example.com/dp/B0)", "https://shop.example.com/dp/B0"},
		{"<https://example.com>", "https://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeURL(tt.in); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidatePageURL(t *testing.T) {
	if got, err := ValidatePageURL(" https://example.com/x. "); err != nil || got != "https://example.com/x" {
		t.Errorf("ValidatePageURL() = (%q, %v)", got, err)
	}
	for _, bad := range []string{"", "ftp://example.com", "example.com/path", "https://"} {
		if _, err := ValidatePageURL(bad); err == nil {
			t.Errorf("ValidatePageURL(%q) expected error", bad)
		}
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, map[string]any{"show": true, "nested": map[string]int{"a": 1}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "show: true") || !strings.Contains(buf.String(), "\n  a: 1") {
		t.Errorf("WriteYAML() = %q", buf.String())
	}
}

func TestSetupFailuresAreMarked(t *testing.T) {
	dir := t.TempDir()
	badConfig := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badConfig, []byte("url_cooldown: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown store backend", []string{"--config", filepath.Join(dir, "none.yaml"), "--store", "etcd"}},
		{"unparsable config", []string{"--config", badConfig, "--store", "memory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Name:  "chip-gate",
				Flags: GlobalFlags,
				Action: func(c *cli.Context) error {
					rt, err := Setup(c)
					if err != nil {
						return err
					}
					return rt.Close()
				},
			}
			err := app.Run(append([]string{"chip-gate", "--quiet"}, tt.args...))
			if !errors.Is(err, ErrSetup) {
				t.Errorf("Run() error = %v, want ErrSetup", err)
			}
		})
	}

	app := &cli.App{
		Name:  "chip-gate",
		Flags: GlobalFlags,
		Action: func(c *cli.Context) error {
			rt, err := Setup(c)
			if err != nil {
				return err
			}
			return rt.Close()
		},
	}
	if err := app.Run([]string{"chip-gate", "--quiet", "--config", filepath.Join(dir, "none.yaml"), "--store", "memory"}); err != nil {
		t.Errorf("Run() with defaults error = %v", err)
	}
}
