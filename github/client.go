package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PrakyathReddy/StackDebt-sub001/errors"
	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
)

// Config configures the GitHub client.
type Config struct {
	// BaseURL is the API root. Override for tests or GitHub Enterprise.
	BaseURL string `mapstructure:"base_url"`
	// Token is an optional personal access token for higher rate limits.
	Token string `mapstructure:"token"`
	// UserAgent identifies this analyzer to the API.
	UserAgent string `mapstructure:"user_agent"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.github.com"
	}
	if c.UserAgent == "" {
		c.UserAgent = "StackDebt-Analyzer/1.0"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// manifestEcosystems maps manifest file names to the ecosystem they reveal.
var manifestEcosystems = map[string]string{
	"package.json":       "npm",
	"package-lock.json":  "npm",
	"requirements.txt":   "python",
	"pyproject.toml":     "python",
	"setup.py":           "python",
	"go.mod":             "go",
	"go.sum":             "go",
	"pom.xml":            "maven",
	"build.gradle":       "gradle",
	"Cargo.toml":         "rust",
	"composer.json":      "php",
	"Gemfile":            "ruby",
	"Dockerfile":         "docker",
	"docker-compose.yml": "docker",
	".nvmrc":             "node",
	".python-version":    "python",
	".ruby-version":      "ruby",
}

// Manifest is one detected manifest file.
type Manifest struct {
	Path      string `json:"path"`
	Ecosystem string `json:"ecosystem"`
}

// DetectionResult is the outcome of a repository analysis. When the upstream
// could not be reached it still carries a well-formed degraded shape with the
// fallback metadata attached.
type DetectionResult struct {
	DetectedManifests []Manifest                    `json:"detected_manifests"`
	FailedDetections  []string                      `json:"failed_detections"`
	Metadata          map[string]any                `json:"detection_metadata"`
	Fallback          *resilience.DetectionMetadata `json:"fallback,omitempty"`
}

// Client calls the GitHub API through the resilience handler.
type Client struct {
	config  Config
	http    *http.Client
	handler *resilience.Handler
	log     *logger.Logger
}

// New creates a GitHub client.
func New(cfg Config, handler *resilience.Handler, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		handler: handler,
		log:     log.WithComponent("github"),
	}
}

// ParseRepoURL extracts owner and repository from a github.com URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	parsed, parseErr := url.Parse(repoURL)
	if parseErr != nil {
		return "", "", errors.InvalidInput("repository_url", "not a valid URL").WithCause(parseErr)
	}
	if !strings.EqualFold(parsed.Host, "github.com") {
		return "", "", errors.InvalidInput("repository_url", fmt.Sprintf("not a GitHub repository URL: %s", repoURL))
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.InvalidInput("repository_url", fmt.Sprintf("invalid GitHub repository URL format: %s", repoURL))
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// AnalyzeRepository lists a repository's tree and reports the manifests it
// carries. Terminal upstream failures degrade to a fallback-shaped result
// rather than an error; only invalid input is returned as an error.
func (c *Client) AnalyzeRepository(ctx context.Context, repoURL string) (*DetectionResult, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tree, err := resilience.Execute(ctx, c.handler, resilience.ServiceGitHubAPI,
		func(ctx context.Context) (*treeResponse, error) {
			return c.fetchTree(ctx, owner, repo)
		})
	if err != nil {
		c.log.Warn("Repository analysis degraded to fallback", map[string]interface{}{
			"repository_url": repoURL,
			"error":          err.Error(),
		})
		fb := resilience.BuildFallback(resilience.ServiceGitHubAPI, err, map[string]any{
			"repository_url": repoURL,
		})
		return &DetectionResult{
			DetectedManifests: []Manifest{},
			FailedDetections:  fb.FailedDetections,
			Metadata: map[string]any{
				"repository_url": repoURL,
				"analysis_type":  "github",
			},
			Fallback: fb.DetectionMetadata,
		}, nil
	}

	manifests := detectManifests(tree)
	return &DetectionResult{
		DetectedManifests: manifests,
		FailedDetections:  []string{},
		Metadata: map[string]any{
			"repository_url":    repoURL,
			"owner":             owner,
			"repo":              repo,
			"files_scanned":     len(tree.Tree),
			"truncated":         tree.Truncated,
			"detection_time_ms": time.Since(start).Milliseconds(),
			"analysis_type":     "github",
		},
	}, nil
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// fetchTree lists the repository tree at HEAD. Failures are surfaced as the
// structured errors the classifier understands.
func (c *Client) fetchTree(ctx context.Context, owner, repo string) (*treeResponse, error) {
	treeURL := fmt.Sprintf("%s/repos/%s/%s/git/trees/HEAD?recursive=1", c.config.BaseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, treeURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "token "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.HTTPError{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header.Clone(),
			URL:        treeURL,
		}
	}

	var tree treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, fmt.Errorf("decoding tree response: %w", err)
	}
	return &tree, nil
}

// detectManifests scans tree entries for known manifest file names.
func detectManifests(tree *treeResponse) []Manifest {
	manifests := []Manifest{}
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		name := path.Base(entry.Path)
		if eco, ok := manifestEcosystems[name]; ok {
			manifests = append(manifests, Manifest{Path: entry.Path, Ecosystem: eco})
		}
	}
	return manifests
}
