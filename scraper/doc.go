// Package scraper detects publicly visible web technologies from a site's
// HTTP response headers (server, CDN, framework hints). All requests go
// through the resilience layer and degrade to a fallback result when the
// target cannot be reached.
package scraper
