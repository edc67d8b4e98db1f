package window

import (
	"fmt"
	"time"
)

// UsageEntry is one recorded generation turn's context utilization.
// Entries are appended to a bounded history (most recent 100) by the
// caller; the recommender only reads them.
type UsageEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	UsagePercent float64   `json:"context_usage_percent"`
	Truncated    bool      `json:"context_truncated"`
	TotalTokens  int       `json:"total_tokens,omitempty"`
	Window       int       `json:"context_window,omitempty"`
}

// Confidence levels for a recommendation.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Recommendation proposes a new context window size based on usage history.
type Recommendation struct {
	Size       int    `json:"size"`
	Reason     string `json:"reason"`
	Confidence string `json:"confidence"`
}

const (
	minHistory     = 5
	analysisWindow = 20
)

// Recommend analyzes recent usage history and proposes a window resize,
// or returns nil when the history carries no actionable signal.
//
// Upsizing triggers when more than 5 of the last 20 entries exceed 90%
// usage or more than 3 were truncated; downsizing only when average usage
// sits below 30% and there is a smaller ladder size to move to. Upsizing
// wins when both conditions hold: avoiding truncation is worth more than
// saving memory.
func Recommend(history []UsageEntry, currentWindow int) *Recommendation {
	if len(history) < minHistory {
		return nil
	}

	recent := history
	if len(recent) > analysisWindow {
		recent = recent[len(recent)-analysisWindow:]
	}

	var highUsage, truncations int
	var avgUsage float64
	for _, e := range recent {
		avgUsage += e.UsagePercent
		if e.UsagePercent > 90 {
			highUsage++
		}
		if e.Truncated {
			truncations++
		}
	}
	avgUsage /= float64(len(recent))

	if highUsage > 5 || truncations > 3 {
		if next := NextUp(currentWindow); next != 0 {
			confidence := ConfidenceMedium
			if highUsage > 10 {
				confidence = ConfidenceHigh
			}
			return &Recommendation{
				Size: next,
				Reason: fmt.Sprintf(
					"High usage detected (%d queries >90%%, %d truncated). Average usage: %.1f%%. Consider increasing to %d tokens.",
					highUsage, truncations, avgUsage, next),
				Confidence: confidence,
			}
		}
	}

	if avgUsage < 30 && currentWindow > Ladder[0] {
		if next := NextDown(currentWindow); next != 0 {
			return &Recommendation{
				Size: next,
				Reason: fmt.Sprintf(
					"Low average usage (%.1f%%). Could reduce to %d tokens to save memory.",
					avgUsage, next),
				Confidence: ConfidenceLow,
			}
		}
	}

	return nil
}
