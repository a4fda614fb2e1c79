package snippet

import (
	"cmp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	inlet "github.com/Paranoid-AF/inlet"
)

const (
	defaultRecentTTL      = 2 * time.Minute
	defaultRecentCapacity = 16
)

type recentEntry struct {
	rng EditedRange
	seq uint64
}

// RecentTracker remembers recently edited ranges for a short time.
type RecentTracker struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, recentEntry]
	seq   uint64
}

// NewRecentTracker creates a tracker. Zero values select the defaults of
// two minutes and sixteen ranges.
func NewRecentTracker(ttl time.Duration, capacity int) *RecentTracker {
	if ttl <= 0 {
		ttl = defaultRecentTTL
	}
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	c := ttlcache.New[string, recentEntry](
		ttlcache.WithTTL[string, recentEntry](ttl),
		ttlcache.WithCapacity[string, recentEntry](uint64(capacity)),
	)
	go c.Start()
	return &RecentTracker{cache: c}
}

// Record stores an edit. The range spans StartLine and one line per entry
// of Lines; an older range of the same file that overlaps it is merged in,
// with the new lines winning.
func (t *RecentTracker) Record(edit inlet.EditRequest) {
	if edit.Filepath == "" || len(edit.Lines) == 0 {
		return
	}
	merged := EditedRange{
		Filepath:  edit.Filepath,
		StartLine: edit.StartLine,
		EndLine:   edit.StartLine + len(edit.Lines) - 1,
		Lines:     slices.Clone(edit.Lines),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, item := range t.cache.Items() {
		r := item.Value().rng
		if r.Filepath != merged.Filepath || r.StartLine > merged.EndLine || merged.StartLine > r.EndLine {
			continue
		}
		merged = mergeRanges(r, merged)
		t.cache.Delete(key)
	}
	t.seq++
	key := merged.Filepath + ":" + strconv.Itoa(merged.StartLine)
	t.cache.Set(key, recentEntry{rng: merged, seq: t.seq}, ttlcache.DefaultTTL)
}

// mergeRanges overlays newer on older.
func mergeRanges(older, newer EditedRange) EditedRange {
	lo := min(older.StartLine, newer.StartLine)
	hi := max(older.EndLine, newer.EndLine)
	lines := make([]string, hi-lo+1)
	copy(lines[older.StartLine-lo:], older.Lines)
	copy(lines[newer.StartLine-lo:], newer.Lines)
	return EditedRange{Filepath: newer.Filepath, StartLine: lo, EndLine: hi, Lines: lines}
}

// Ranges returns the live ranges, most recently edited first.
func (t *RecentTracker) Ranges() []EditedRange {
	t.mu.Lock()
	items := t.cache.Items()
	t.mu.Unlock()

	entries := make([]recentEntry, 0, len(items))
	for _, item := range items {
		if item.IsExpired() {
			continue
		}
		entries = append(entries, item.Value())
	}
	slices.SortFunc(entries, func(a, b recentEntry) int {
		return cmp.Compare(b.seq, a.seq)
	})
	out := make([]EditedRange, len(entries))
	for i, e := range entries {
		out[i] = e.rng
	}
	return out
}

// Close stops the expiry loop.
func (t *RecentTracker) Close() {
	t.cache.Stop()
}
