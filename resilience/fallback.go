package resilience

import (
	"errors"
	"fmt"
	"time"
)

// DetectionMetadata tags a degraded analysis result with the reason the
// upstream could not be reached.
type DetectionMetadata struct {
	AnalysisType   string `json:"analysis_type"`
	FallbackReason string `json:"fallback_reason"`
	OriginalError  string `json:"original_error"`
}

// FallbackPayload is a structurally valid, degraded response for a service
// call that was abandoned. Downstream consumers never have to special-case
// total upstream failure.
type FallbackPayload struct {
	ServiceName    string         `json:"service_name"`
	ErrorKind      string         `json:"error_type"`
	ErrorMessage   string         `json:"error_message"`
	FallbackActive bool           `json:"fallback_active"`
	Timestamp      time.Time      `json:"timestamp"`
	Context        map[string]any `json:"context,omitempty"`

	// Extension fields, populated only for recognized service names.
	DetectedComponents []string           `json:"detected_components,omitempty"`
	FailedDetections   []string           `json:"failed_detections,omitempty"`
	DetectionMetadata  *DetectionMetadata `json:"detection_metadata,omitempty"`
}

// BuildFallback constructs the degraded payload for a terminal failure. It is
// the last line of defense: it never fails, tolerates a nil error, and always
// produces a non-empty error kind with fallback_active set.
func BuildFallback(service string, err error, context map[string]any) FallbackPayload {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}

	payload := FallbackPayload{
		ServiceName:    service,
		ErrorKind:      errorKind(err),
		ErrorMessage:   message,
		FallbackActive: true,
		Timestamp:      time.Now().UTC(),
		Context:        context,
	}

	switch service {
	case ServiceGitHubAPI:
		payload.DetectedComponents = []string{}
		payload.FailedDetections = []string{
			fmt.Sprintf("GitHub API unavailable: %s", message),
		}
		payload.DetectionMetadata = &DetectionMetadata{
			AnalysisType:   "github",
			FallbackReason: "github_api_failure",
			OriginalError:  message,
		}
	case ServiceHTTPScraper:
		payload.DetectedComponents = []string{}
		payload.FailedDetections = []string{
			fmt.Sprintf("HTTP scraping unavailable: %s", message),
		}
		payload.DetectionMetadata = &DetectionMetadata{
			AnalysisType:   "website",
			FallbackReason: "http_scraper_failure",
			OriginalError:  message,
		}
	}

	return payload
}

// errorKind maps an error to a short stable tag.
func errorKind(err error) string {
	if err == nil {
		return "unknown_error"
	}

	var (
		openErr      *CircuitOpenError
		nonRetryable *NonRetryableError
		exhausted    *RetryExhaustedError
		httpErr      *HTTPError
		netErr       *NetworkError
	)
	switch {
	case errors.As(err, &openErr):
		return "circuit_open"
	case errors.As(err, &exhausted):
		return "retry_exhausted"
	case errors.As(err, &nonRetryable):
		return "non_retryable"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_status_%d", httpErr.StatusCode)
	case errors.As(err, &netErr):
		return fmt.Sprintf("network_%s", netErr.Kind)
	default:
		return "unknown_error"
	}
}
