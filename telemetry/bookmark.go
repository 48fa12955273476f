package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkCaptureBurst   BookmarkType = "capture_burst"
	BookmarkFlockFormed    BookmarkType = "flock_formed"
	BookmarkFlockScattered BookmarkType = "flock_scattered"
	BookmarkAvoidanceSpike BookmarkType = "avoidance_spike"
	BookmarkStableFlock    BookmarkType = "stable_flock"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPolarMin     float64 // lowest polarization since the last formation
	recentPolarPeak    float64 // highest polarization since the last scatter
	seenWindow         bool
	stableWindowsCount int // consecutive windows with steady alignment
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable flock detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkCaptureBurst(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkFlockFormed(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkFlockScattered(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkAvoidanceSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableFlock(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if !bd.seenWindow || stats.Polarization < bd.recentPolarMin {
		bd.recentPolarMin = stats.Polarization
	}
	if !bd.seenWindow || stats.Polarization > bd.recentPolarPeak {
		bd.recentPolarPeak = stats.Polarization
	}
	bd.seenWindow = true

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// last returns the most recent window in history.
func (bd *BookmarkDetector) last() WindowStats {
	idx := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	return bd.history[idx]
}

func (bd *BookmarkDetector) checkCaptureBurst(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Captures()
	}
	avg := float64(total) / float64(len(history))

	captures := stats.Captures()
	if captures >= 3 && float64(captures) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkCaptureBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d captures against a rolling average of %.1f", captures, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkFlockFormed(stats WindowStats) *Bookmark {
	if stats.Agents < 2 || bd.recentPolarMin >= 0.5 {
		return nil
	}

	if stats.Polarization >= 0.9 {
		oldMin := bd.recentPolarMin
		bd.recentPolarMin = stats.Polarization

		return &Bookmark{
			Type:        BookmarkFlockFormed,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization rose from %.2f to %.2f", oldMin, stats.Polarization),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkFlockScattered(stats WindowStats) *Bookmark {
	if bd.recentPolarPeak < 0.8 {
		return nil
	}

	if stats.Polarization < bd.recentPolarPeak-0.4 {
		oldPeak := bd.recentPolarPeak
		bd.recentPolarPeak = stats.Polarization

		return &Bookmark{
			Type:        BookmarkFlockScattered,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Polarization fell from %.2f to %.2f", oldPeak, stats.Polarization),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkAvoidanceSpike(stats WindowStats) *Bookmark {
	if stats.Agents == 0 {
		return nil
	}

	frac := float64(stats.Avoiding) / float64(stats.Agents)
	prev := bd.last()
	prevFrac := 0.0
	if prev.Agents > 0 {
		prevFrac = float64(prev.Avoiding) / float64(prev.Agents)
	}

	if frac > 0.5 && prevFrac <= 0.5 {
		return &Bookmark{
			Type:        BookmarkAvoidanceSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d of %d agents avoiding obstacles", stats.Avoiding, stats.Agents),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableFlock(stats WindowStats) *Bookmark {
	if stats.Agents < 10 || stats.Polarization < 0.7 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Variance of polarization over the last four windows
	recent := history[len(history)-4:]
	if bd.historyFull {
		recent = make([]WindowStats, 0, 4)
		for i := 4; i >= 1; i-- {
			recent = append(recent, bd.history[(bd.historyIdx-i+bd.historySize)%bd.historySize])
		}
	}
	var sum float64
	for _, h := range recent {
		sum += h.Polarization
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.Polarization - mean
		variance += d * d
	}
	variance /= 4

	if variance < 0.0025 { // std below 0.05
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableFlock,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d agents held polarization near %.2f over 5+ windows", stats.Agents, mean),
		}
	}

	return nil
}
