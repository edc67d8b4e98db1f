package window

import "fmt"

// Reconciliation is the outcome of comparing the configured window size
// against the size the backend reports for the active model.
type Reconciliation struct {
	Effective  int    `json:"effective"`
	Configured int    `json:"configured"`
	Detected   int    `json:"detected,omitempty"`
	Mismatch   bool   `json:"mismatch"`
	Warning    string `json:"warning,omitempty"`
}

// Reconcile compares the configured window with the backend-reported one.
// Detection is best effort: detected is ignored unless ok is true. A
// mismatch is surfaced as a warning naming both values; neither side is
// auto-corrected, resolving the difference is an operator action.
func Reconcile(configured int, detected int, ok bool) Reconciliation {
	r := Reconciliation{Effective: configured, Configured: configured}
	if !ok {
		return r
	}
	r.Detected = detected
	if detected != configured {
		r.Mismatch = true
		r.Warning = fmt.Sprintf(
			"context window mismatch: configured %d, backend reports %d; update the configuration or the backend's num_ctx",
			configured, detected)
	}
	return r
}
