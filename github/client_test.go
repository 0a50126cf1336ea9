package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
)

// newTestHandler builds a resilience handler with millisecond backoff so
// failure-path tests stay fast.
func newTestHandler() *resilience.Handler {
	configs := resilience.DefaultServiceConfigs()
	for name, cfg := range configs {
		cfg.Retry.BaseDelay = time.Millisecond
		cfg.Retry.MaxDelay = 5 * time.Millisecond
		cfg.Retry.Jitter = false
		configs[name] = cfg
	}
	return resilience.NewHandler(logger.NewDefault("test"), resilience.WithServiceConfigs(configs))
}

func newTestClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, Token: "test-token"}, newTestHandler(), logger.NewDefault("test"))
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		owner     string
		repo      string
		expectErr bool
	}{
		{"https://github.com/golang/go", "golang", "go", false},
		{"https://github.com/golang/go.git", "golang", "go", false},
		{"https://github.com/golang/go/tree/master/src", "golang", "go", false},
		{"https://GITHUB.COM/golang/go", "golang", "go", false},
		{"https://gitlab.com/golang/go", "", "", true},
		{"https://github.com/golang", "", "", true},
		{"https://github.com/", "", "", true},
		{"://bad", "", "", true},
	}

	for _, tt := range tests {
		owner, repo, err := ParseRepoURL(tt.url)
		if tt.expectErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q): expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q): unexpected error %v", tt.url, err)
			continue
		}
		if owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRepoURL(%q) = (%s, %s), want (%s, %s)", tt.url, owner, repo, tt.owner, tt.repo)
		}
	}
}

func TestAnalyzeRepository_DetectsManifests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/golang/go/git/trees/HEAD" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("unexpected Accept header: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "token test-token" {
			t.Errorf("unexpected Authorization header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tree": [
				{"path": "package.json", "type": "blob"},
				{"path": "backend/requirements.txt", "type": "blob"},
				{"path": "tools/go.mod", "type": "blob"},
				{"path": "docs", "type": "tree"},
				{"path": "README.md", "type": "blob"}
			],
			"truncated": false
		}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.AnalyzeRepository(context.Background(), "https://github.com/golang/go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"package.json":             "npm",
		"backend/requirements.txt": "python",
		"tools/go.mod":             "go",
	}
	if len(result.DetectedManifests) != len(want) {
		t.Fatalf("expected %d manifests, got %d: %v", len(want), len(result.DetectedManifests), result.DetectedManifests)
	}
	for _, m := range result.DetectedManifests {
		if want[m.Path] != m.Ecosystem {
			t.Errorf("manifest %s: ecosystem %s, want %s", m.Path, m.Ecosystem, want[m.Path])
		}
	}

	if result.Fallback != nil {
		t.Error("successful analysis must not carry fallback metadata")
	}
	if result.Metadata["files_scanned"] != 5 {
		t.Errorf("expected 5 files scanned, got %v", result.Metadata["files_scanned"])
	}
	if result.Metadata["analysis_type"] != "github" {
		t.Errorf("expected analysis_type github, got %v", result.Metadata["analysis_type"])
	}
}

func TestAnalyzeRepository_FallbackOnPersistentServerError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.AnalyzeRepository(context.Background(), "https://github.com/golang/go")
	if err != nil {
		t.Fatalf("terminal upstream failure must degrade, not error: %v", err)
	}

	// The seeded github_api budget is three attempts.
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 upstream calls, got %d", got)
	}

	if len(result.DetectedManifests) != 0 {
		t.Error("degraded result must carry no manifests")
	}
	if len(result.FailedDetections) == 0 {
		t.Error("degraded result must explain the failure")
	}
	if result.Fallback == nil {
		t.Fatal("degraded result must carry fallback metadata")
	}
	if result.Fallback.AnalysisType != "github" {
		t.Errorf("expected analysis type github, got %s", result.Fallback.AnalysisType)
	}
}

func TestAnalyzeRepository_NotFoundStopsAfterOneCall(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	result, err := c.AnalyzeRepository(context.Background(), "https://github.com/golang/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("404 is permanent; expected 1 upstream call, got %d", got)
	}
	if result.Fallback == nil {
		t.Error("degraded result must carry fallback metadata")
	}
}

func TestAnalyzeRepository_RejectsInvalidURL(t *testing.T) {
	c := newTestClient("http://unused.test")

	_, err := c.AnalyzeRepository(context.Background(), "https://example.com/not/github")
	if err == nil {
		t.Fatal("expected error for a non-GitHub URL")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.BaseURL != "https://api.github.com" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.UserAgent == "" || cfg.Timeout == 0 {
		t.Error("defaults must fill user agent and timeout")
	}

	custom := Config{BaseURL: "https://ghe.internal/api/v3"}
	custom.ApplyDefaults()
	if custom.BaseURL != "https://ghe.internal/api/v3" {
		t.Error("defaults must not override a set base URL")
	}
}
