// Package github fetches repository metadata from the GitHub REST API to
// detect which manifest files a repository carries. All calls go through the
// resilience layer; when the upstream is unavailable the analyzer degrades to
// a fallback result instead of failing.
package github
