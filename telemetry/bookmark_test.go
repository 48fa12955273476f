package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_CaptureBurst(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Quiet history with the odd capture
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 640), Agents: 60, SeekCaptures: 1})
	}

	burst := WindowStats{WindowEndTick: 3200, Agents: 60, SeekCaptures: 3, FleeCaptures: 2}
	if !hasBookmark(bd.Check(burst), BookmarkCaptureBurst) {
		t.Error("expected capture_burst bookmark")
	}
}

func TestBookmarkDetector_FormedThenScattered(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 640), Agents: 60, Polarization: 0.2})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1920, Agents: 60, Polarization: 0.95}), BookmarkFlockFormed) {
		t.Fatal("expected flock_formed bookmark")
	}
	// Staying aligned does not fire again.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 2560, Agents: 60, Polarization: 0.96}), BookmarkFlockFormed) {
		t.Error("flock_formed should fire once per formation")
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 3200, Agents: 60, Polarization: 0.3}), BookmarkFlockScattered) {
		t.Error("expected flock_scattered bookmark")
	}
}

func TestBookmarkDetector_AvoidanceSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{WindowEndTick: 640, Agents: 10, Avoiding: 2})

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 1280, Agents: 10, Avoiding: 7}), BookmarkAvoidanceSpike) {
		t.Fatal("expected avoidance_spike bookmark")
	}
	// Still high: only the crossing is interesting.
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 1920, Agents: 10, Avoiding: 8}), BookmarkAvoidanceSpike) {
		t.Error("avoidance_spike should only fire on the crossing")
	}
}

func TestBookmarkDetector_StableFlock(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := 0
	for i := 0; i < 12; i++ {
		stats := WindowStats{WindowEndTick: int32(i * 640), Agents: 60, Polarization: 0.93}
		if hasBookmark(bd.Check(stats), BookmarkStableFlock) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("stable_flock fired %d times, want exactly 1", fired)
	}
}
