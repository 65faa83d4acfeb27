// Package opensearch builds an opensearch-go/v2 client from env config and
// exposes a readiness probe.
package opensearch
