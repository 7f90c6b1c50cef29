package miner

import (
	"testing"
	"time"

	"github.com/nerdqaxe/qaxeminer/monitor"
	"github.com/nerdqaxe/qaxeminer/statistics"
)

// The windowed averages in Status label publish counts as wall-clock
// spans. That only holds while the publish cadence is the cycle deadline,
// so pin the two together.
func TestAverageWindowsMatchPublishCadence(t *testing.T) {
	if got := time.Duration(publishesPerMinute) * monitor.DefaultCycleDeadline; got != time.Minute {
		t.Fatalf("publishesPerMinute covers %v of publishes, want %v", got, time.Minute)
	}
	if got := 60 * publishesPerMinute; got != statistics.DefaultCapacity {
		t.Fatalf("one hour is %d publishes, but the history holds %d", got, statistics.DefaultCapacity)
	}
}

func TestSelectZapLevelFallsBackToInfo(t *testing.T) {
	if got := selectZapLevel("chatty"); got != selectZapLevel("info") {
		t.Fatalf("unknown level = %v, want the info fallback", got)
	}
}
