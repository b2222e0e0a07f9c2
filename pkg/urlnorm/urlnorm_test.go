package urlnorm

import "testing"

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "https://example.com/p/1", "https://example.com/p/1"},
		{"strips tracking", "https://example.com/p/1?utm_source=x&fbclid=y&id=7", "https://example.com/p/1?id=7"},
		{"sorts query", "https://example.com/s?b=2&a=1", "https://example.com/s?a=1&b=2"},
		{"drops fragment", "https://example.com/article#comments", "https://example.com/article"},
		{"lowercases host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"default port", "https://example.com:443/x", "https://example.com/x"},
		{"collapses slashes", "https://example.com//a///b", "https://example.com/a/b"},
		{"empty path", "https://example.com", "https://example.com/"},
		{"session param", "https://example.com/x?cache_ts=123&q=z", "https://example.com/x?q=z"},
		{"not a URL", "  not a url  ", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.in); got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	got, err := Origin("https://www.Amazon.com:443/dp/B0?x=1")
	if err != nil || got != "https://www.amazon.com" {
		t.Errorf("Origin() = (%q, %v)", got, err)
	}
	if _, err := Origin("/relative/path"); err == nil {
		t.Error("Origin() expected error for relative URL")
	}
}

func TestHostname(t *testing.T) {
	got, err := Hostname("http://Shop.Example.com:8080/x")
	if err != nil || got != "shop.example.com" {
		t.Errorf("Hostname() = (%q, %v)", got, err)
	}
}
