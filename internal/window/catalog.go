// Package window manages context window sizing: the ladder of sizes the
// generation backend accepts, reconciliation against what the backend
// actually reports, and usage-driven resize recommendations.
package window

// Ladder is the ordered set of context window sizes Ollama accepts for
// num_ctx. Any configured value outside this set is snapped to the
// nearest member.
var Ladder = []int{4096, 8192, 16384, 32768, 65536, 131072, 262144}

// Valid reports whether n is a member of the ladder.
func Valid(n int) bool {
	for _, s := range Ladder {
		if s == n {
			return true
		}
	}
	return false
}

// NearestValid snaps a requested window size to the nearest ladder member.
// Members map to themselves. Ties break toward the smaller size.
func NearestValid(requested int) int {
	best := Ladder[0]
	bestDist := abs(requested - best)
	for _, s := range Ladder[1:] {
		if d := abs(requested - s); d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}

// NextUp returns the smallest ladder size strictly greater than current,
// or 0 if current is already at the top.
func NextUp(current int) int {
	for _, s := range Ladder {
		if s > current {
			return s
		}
	}
	return 0
}

// NextDown returns the largest ladder size strictly smaller than current,
// or 0 if current is already at the bottom.
func NextDown(current int) int {
	for i := len(Ladder) - 1; i >= 0; i-- {
		if Ladder[i] < current {
			return Ladder[i]
		}
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
