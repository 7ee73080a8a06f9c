// Package metrics provides the Prometheus collectors of contractwatch.
package metrics

// Scan results used as the "result" label of the scan runs counter
const (
	ResultNotified   = "notified"
	ResultNothingDue = "nothing_due"
	ResultSkipped    = "skipped"
	ResultFetchError = "fetch_error"
	ResultError      = "error"
	ResultStaged     = "staged"
)

// Namespace prefixes every metric name
const Namespace = "contractwatch"

// requestBuckets covers fast local backends up to the fetch timeout
var requestBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
