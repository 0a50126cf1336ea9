package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PrakyathReddy/StackDebt-sub001/errors"
	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
)

// Config configures the header scraper.
type Config struct {
	// UserAgent identifies this analyzer to scraped sites.
	UserAgent string `mapstructure:"user_agent"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = "StackDebt-Analyzer/1.0 (Infrastructure Analysis Tool)"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// serverPatterns extract a server product and optional version from the
// Server header.
var serverPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"apache", regexp.MustCompile(`(?i)Apache/(\d+\.\d+\.\d+)`)},
	{"nginx", regexp.MustCompile(`(?i)nginx/(\d+\.\d+\.\d+)`)},
	{"iis", regexp.MustCompile(`(?i)Microsoft-IIS/(\d+\.\d+)`)},
	{"lighttpd", regexp.MustCompile(`(?i)lighttpd/(\d+\.\d+\.\d+)`)},
	{"cloudflare", regexp.MustCompile(`(?i)cloudflare`)},
	{"caddy", regexp.MustCompile(`(?i)Caddy`)},
}

// techPatterns detect frameworks and platforms from revealing headers.
var techPatterns = map[string][]struct {
	name string
	re   *regexp.Regexp
}{
	"X-Powered-By": {
		{"php", regexp.MustCompile(`(?i)PHP/(\d+\.\d+\.\d+)`)},
		{"asp.net", regexp.MustCompile(`(?i)ASP\.NET`)},
		{"express", regexp.MustCompile(`(?i)Express`)},
		{"next.js", regexp.MustCompile(`(?i)Next\.js`)},
	},
	"X-Generator": {
		{"wordpress", regexp.MustCompile(`(?i)WordPress (\d+\.\d+\.\d+)`)},
		{"drupal", regexp.MustCompile(`(?i)Drupal (\d+)`)},
	},
	"X-Framework": {
		{"laravel", regexp.MustCompile(`(?i)Laravel`)},
		{"django", regexp.MustCompile(`(?i)Django`)},
	},
}

// Technology is one detected technology with the header that revealed it.
type Technology struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Source  string `json:"source"`
}

// Analysis is the outcome of a website header analysis. When the target
// could not be reached it carries a degraded shape with fallback metadata.
type Analysis struct {
	DetectedTechnologies []Technology                  `json:"detected_technologies"`
	FailedDetections     []string                      `json:"failed_detections"`
	Metadata             map[string]any                `json:"detection_metadata"`
	Fallback             *resilience.DetectionMetadata `json:"fallback,omitempty"`
}

// Client scrapes response headers through the resilience handler.
type Client struct {
	config  Config
	http    *http.Client
	handler *resilience.Handler
	log     *logger.Logger
}

// New creates a scraper client.
func New(cfg Config, handler *resilience.Handler, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		handler: handler,
		log:     log.WithComponent("scraper"),
	}
}

// NormalizeURL adds an https scheme when missing and validates the host.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.InvalidInput("url", "url cannot be empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", errors.InvalidInput("url", fmt.Sprintf("not a valid URL: %s", raw))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.InvalidInput("url", fmt.Sprintf("unsupported scheme: %s", parsed.Scheme))
	}
	return parsed.String(), nil
}

// AnalyzeWebsite fetches the site's headers and reports the technologies they
// reveal. Terminal upstream failures degrade to a fallback-shaped result;
// only invalid input is returned as an error.
func (c *Client) AnalyzeWebsite(ctx context.Context, rawURL string) (*Analysis, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	headers, err := resilience.Execute(ctx, c.handler, resilience.ServiceHTTPScraper,
		func(ctx context.Context) (http.Header, error) {
			return c.fetchHeaders(ctx, target)
		})
	if err != nil {
		c.log.Warn("Website analysis degraded to fallback", map[string]interface{}{
			"url":   target,
			"error": err.Error(),
		})
		fb := resilience.BuildFallback(resilience.ServiceHTTPScraper, err, map[string]any{
			"url_analyzed": target,
		})
		return &Analysis{
			DetectedTechnologies: []Technology{},
			FailedDetections:     fb.FailedDetections,
			Metadata: map[string]any{
				"url_analyzed":  target,
				"analysis_type": "website",
			},
			Fallback: fb.DetectionMetadata,
		}, nil
	}

	techs := detectTechnologies(headers)
	return &Analysis{
		DetectedTechnologies: techs,
		FailedDetections:     []string{},
		Metadata: map[string]any{
			"url_analyzed":      target,
			"headers_found":     len(headers),
			"detection_time_ms": time.Since(start).Milliseconds(),
			"analysis_type":     "website",
		},
	}, nil
}

// fetchHeaders issues a HEAD request first to minimize transfer, falling back
// to GET for servers that reject HEAD. Failures are surfaced as the
// structured errors the classifier understands.
func (c *Client) fetchHeaders(ctx context.Context, target string) (http.Header, error) {
	headers, err := c.request(ctx, http.MethodHead, target)
	if err == nil {
		return headers, nil
	}
	if _, isStatus := errAsHTTP(err); !isStatus {
		return nil, err
	}
	return c.request(ctx, http.MethodGet, target)
}

func (c *Client) request(ctx context.Context, method, target string) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &resilience.HTTPError{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header.Clone(),
			URL:        target,
		}
	}
	return resp.Header.Clone(), nil
}

func errAsHTTP(err error) (*resilience.HTTPError, bool) {
	httpErr, ok := err.(*resilience.HTTPError)
	return httpErr, ok
}

// detectTechnologies parses the Server header and the framework-revealing
// headers for known products.
func detectTechnologies(headers http.Header) []Technology {
	techs := []Technology{}

	if server := headers.Get("Server"); server != "" {
		if tech, ok := parseServerHeader(server); ok {
			techs = append(techs, tech)
		}
	}

	for header, patterns := range techPatterns {
		value := headers.Get(header)
		if value == "" {
			continue
		}
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(value)
			if m == nil {
				continue
			}
			tech := Technology{Name: p.name, Source: header}
			if len(m) > 1 {
				tech.Version = m[1]
			}
			techs = append(techs, tech)
		}
	}
	return techs
}

// parseServerHeader matches known server products, falling back to a generic
// name/version split for unrecognized servers.
func parseServerHeader(server string) (Technology, bool) {
	for _, p := range serverPatterns {
		m := p.re.FindStringSubmatch(server)
		if m == nil {
			continue
		}
		tech := Technology{Name: p.name, Source: "Server"}
		if len(m) > 1 {
			tech.Version = m[1]
		}
		return tech, true
	}

	fields := strings.Fields(server)
	if len(fields) == 0 {
		return Technology{}, false
	}
	parts := strings.SplitN(fields[0], "/", 2)
	if parts[0] == "" {
		return Technology{}, false
	}
	tech := Technology{Name: strings.ToLower(parts[0]), Source: "Server"}
	if len(parts) == 2 {
		tech.Version = parts[1]
	}
	return tech, true
}
