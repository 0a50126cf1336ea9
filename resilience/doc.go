// Package resilience guards calls to flaky external services.
//
// This package includes:
//   - CircuitBreaker: per-service Closed/Open/Half-Open gate over recent failures
//   - Classifier: maps raw failures to retryable or non-retryable dispositions
//   - Execute: retry orchestration with exponential backoff and jitter
//   - Handler: registry of breakers and per-service retry configuration
//   - BuildFallback: degraded but well-formed payloads for abandoned calls
//
// A typical caller goes through the Handler:
//
//	h := resilience.NewHandler(log)
//	result, err := resilience.Execute(ctx, h, resilience.ServiceGitHubAPI,
//	    func(ctx context.Context) (*RepoContents, error) {
//	        return fetchContents(ctx, repoURL)
//	    })
//	if err != nil {
//	    payload := resilience.BuildFallback(resilience.ServiceGitHubAPI, err, nil)
//	    // serve the degraded payload instead of a bare 5xx
//	}
package resilience
