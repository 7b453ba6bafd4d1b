package aggregate

import (
	"math"
	"math/bits"
	"sort"
	"sync"

	"yieldScope/internal/model"
)

const (
	// WindowCap is the number of minute buckets kept per pool.
	WindowCap = 10
	// WindowMinutes is the span the fee rate is extrapolated from.
	WindowMinutes = 10

	// MinInlineLiquidity is the liquidity below which a swap is not rated.
	MinInlineLiquidity = 1000
)

// Windows holds the rolling per-pool volume windows.
type Windows struct {
	mu      sync.RWMutex
	windows map[string][]model.VolumeBucket
}

func NewWindows() *Windows {
	return &Windows{windows: make(map[string][]model.VolumeBucket)}
}

// Record folds amount into the pool's window and returns a copy of the
// updated window. Same-minute volume accumulates into the last bucket; a new
// minute appends, evicting the oldest buckets beyond WindowCap. A minute
// older than the last bucket folds into the last bucket so minutes stay
// strictly increasing.
func (w *Windows) Record(pool string, minute, amount uint64) []model.VolumeBucket {
	w.mu.Lock()
	defer w.mu.Unlock()

	buckets := w.windows[pool]
	if n := len(buckets); n > 0 && buckets[n-1].Minute >= minute {
		buckets[n-1].Amount = addSaturating(buckets[n-1].Amount, amount)
	} else {
		buckets = append(buckets, model.VolumeBucket{Minute: minute, Amount: amount})
	}
	if over := len(buckets) - WindowCap; over > 0 {
		buckets = append(buckets[:0:0], buckets[over:]...)
	}
	w.windows[pool] = buckets
	return cloneBuckets(buckets)
}

// Get returns a copy of one pool's window.
func (w *Windows) Get(pool string) ([]model.VolumeBucket, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	buckets, ok := w.windows[pool]
	if !ok {
		return nil, false
	}
	return cloneBuckets(buckets), true
}

// Snapshot returns a deep copy of every window.
func (w *Windows) Snapshot() map[string][]model.VolumeBucket {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]model.VolumeBucket, len(w.windows))
	for pool, buckets := range w.windows {
		out[pool] = cloneBuckets(buckets)
	}
	return out
}

// Replace swaps in a loaded window map. Each window is sorted by minute,
// duplicate minutes are merged and the result is trimmed to WindowCap.
func (w *Windows) Replace(windows map[string][]model.VolumeBucket) {
	next := make(map[string][]model.VolumeBucket, len(windows))
	for pool, buckets := range windows {
		buckets = normalizeBuckets(buckets)
		if over := len(buckets) - WindowCap; over > 0 {
			buckets = buckets[over:]
		}
		next[pool] = buckets
	}
	w.mu.Lock()
	w.windows = next
	w.mu.Unlock()
}

func (w *Windows) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.windows)
}

func normalizeBuckets(buckets []model.VolumeBucket) []model.VolumeBucket {
	sorted := cloneBuckets(buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Minute < sorted[j].Minute })

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Minute == b.Minute {
			out[n-1].Amount = addSaturating(out[n-1].Amount, b.Amount)
			continue
		}
		out = append(out, b)
	}
	return out
}

// TotalVolume sums every bucket of a window.
func TotalVolume(buckets []model.VolumeBucket) float64 {
	var total float64
	for _, b := range buckets {
		total += float64(b.Amount)
	}
	return total
}

// FeeTotal is the fee earned on the window volume, fee*volume/1e6 in whole
// units with the remainder truncated. fee is in parts-per-million.
func FeeTotal(fee uint64, buckets []model.VolumeBucket) uint64 {
	var volume uint64
	for _, b := range buckets {
		volume = addSaturating(volume, b.Amount)
	}
	hi, lo := bits.Mul64(fee, volume)
	if hi >= 1_000_000 {
		return math.MaxUint64
	}
	total, _ := bits.Div64(hi, lo, 1_000_000)
	return total
}

// FeeRatePerHour estimates hourly fee income per unit of liquidity from
// FeeTotal. Callers must reject low liquidity first; zero liquidity or
// window length yields 0.
func FeeRatePerHour(fee uint64, buckets []model.VolumeBucket, liquidity float64, windowMinutes float64) float64 {
	if liquidity <= 0 || windowMinutes <= 0 {
		return 0
	}
	hourly := float64(FeeTotal(fee, buckets)) / windowMinutes * 60
	return hourly / liquidity
}

func addSaturating(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func cloneBuckets(buckets []model.VolumeBucket) []model.VolumeBucket {
	if buckets == nil {
		return nil
	}
	out := make([]model.VolumeBucket, len(buckets))
	copy(out, buckets)
	return out
}
