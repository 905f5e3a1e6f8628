package oracle

import "time"

const DefaultStalenessWindow = 24 * time.Hour

// ShouldAutoTrigger reports whether an automatic valuation request is due. The
// window is used as given; a non-positive window makes any recorded update stale.
func ShouldAutoTrigger(status EntityStatus, autoUpdateEnabled bool, now time.Time, stalenessWindow time.Duration) bool {
	if !autoUpdateEnabled {
		return false
	}
	if !status.CanRequestUpdate {
		return false
	}
	if status.LastSuccessfulUpdate == nil {
		return true
	}
	return now.Sub(status.LastSuccessfulUpdate.ObservedAt) >= stalenessWindow
}
