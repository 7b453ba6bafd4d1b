package aggregate

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/model"
)

const testPool = "0x36696169c63e42cd08ce11f5deebbcebae652050"

func TestRecordAccumulatesSameMinute(t *testing.T) {
	w := NewWindows()
	w.Record(testPool, 100, 5)
	got := w.Record(testPool, 100, 7)

	require.Len(t, got, 1)
	assert.Equal(t, model.VolumeBucket{Minute: 100, Amount: 12}, got[0])
}

func TestRecordEvictsOldestAtCap(t *testing.T) {
	w := NewWindows()
	for m := uint64(0); m < WindowCap; m++ {
		w.Record(testPool, 1000+m, m+1)
	}
	before, ok := w.Get(testPool)
	require.True(t, ok)
	require.Len(t, before, WindowCap)

	after := w.Record(testPool, 1000+WindowCap, 99)
	require.Len(t, after, WindowCap)
	assert.Equal(t, before[1:], after[:WindowCap-1])
	assert.Equal(t, model.VolumeBucket{Minute: 1000 + WindowCap, Amount: 99}, after[WindowCap-1])
	for i := 1; i < len(after); i++ {
		assert.Less(t, after[i-1].Minute, after[i].Minute)
	}
}

func TestGetAndSnapshotReturnCopies(t *testing.T) {
	w := NewWindows()
	w.Record(testPool, 1, 10)

	got, _ := w.Get(testPool)
	got[0].Amount = 999
	snap := w.Snapshot()
	snap[testPool][0].Amount = 999

	again, _ := w.Get(testPool)
	assert.Equal(t, uint64(10), again[0].Amount)

	_, ok := w.Get("0xmissing")
	assert.False(t, ok)
}

func TestReplaceTrimsToCap(t *testing.T) {
	long := make([]model.VolumeBucket, 0, WindowCap+3)
	for m := uint64(0); m < WindowCap+3; m++ {
		long = append(long, model.VolumeBucket{Minute: m, Amount: 1})
	}
	w := NewWindows()
	w.Replace(map[string][]model.VolumeBucket{testPool: long})

	got, ok := w.Get(testPool)
	require.True(t, ok)
	require.Len(t, got, WindowCap)
	assert.Equal(t, uint64(3), got[0].Minute)
	assert.Equal(t, 1, w.Len())
}

func TestFeeRatePerHour(t *testing.T) {
	buckets := []model.VolumeBucket{{Minute: 1, Amount: 30000}, {Minute: 2, Amount: 20000}}
	assert.Equal(t, float64(50000), TotalVolume(buckets))

	// 3000ppm of 50000 over 10 minutes is 150, i.e. 900 per hour
	rate := FeeRatePerHour(3000, buckets, 20000, WindowMinutes)
	assert.InDelta(t, 0.045, rate, 1e-12)

	assert.Zero(t, FeeRatePerHour(3000, buckets, 0, WindowMinutes))
	assert.Zero(t, FeeRatePerHour(3000, nil, 20000, WindowMinutes))
}

func TestFeeTotalTruncates(t *testing.T) {
	buckets := []model.VolumeBucket{{Minute: 1, Amount: 19999}}

	// 100ppm of 19999 is 1.9999, kept as 1
	assert.Equal(t, uint64(1), FeeTotal(100, buckets))
	assert.InDelta(t, 0.0006, FeeRatePerHour(100, buckets, 10000, WindowMinutes), 1e-15)

	// below one whole unit of fee the rate is zero
	assert.Zero(t, FeeRatePerHour(100, []model.VolumeBucket{{Minute: 1, Amount: 9999}}, 10000, WindowMinutes))
}

func TestFeeTotalSaturates(t *testing.T) {
	huge := []model.VolumeBucket{{Minute: 1, Amount: math.MaxUint64}, {Minute: 2, Amount: 5}}
	assert.Equal(t, uint64(math.MaxUint64/1_000_000), FeeTotal(1, huge))
	assert.Equal(t, uint64(math.MaxUint64), FeeTotal(2_000_000, huge))
}

func TestRecordFoldsPastMinute(t *testing.T) {
	w := NewWindows()
	w.Record(testPool, 100, 5)
	w.Record(testPool, 101, 7)
	got := w.Record(testPool, 99, 3)

	assert.Equal(t, []model.VolumeBucket{{Minute: 100, Amount: 5}, {Minute: 101, Amount: 10}}, got)
}

func TestReplaceSortsAndMergesMinutes(t *testing.T) {
	w := NewWindows()
	w.Replace(map[string][]model.VolumeBucket{
		testPool: {{Minute: 7, Amount: 1}, {Minute: 5, Amount: 2}, {Minute: 7, Amount: 4}, {Minute: 6, Amount: 8}},
	})

	got, ok := w.Get(testPool)
	require.True(t, ok)
	assert.Equal(t, []model.VolumeBucket{{Minute: 5, Amount: 2}, {Minute: 6, Amount: 8}, {Minute: 7, Amount: 5}}, got)
}

func TestWindowFileRoundTrip(t *testing.T) {
	file := &WindowFile{Path: filepath.Join(t.TempDir(), "cache", "volume_cache.json")}
	windows := map[string][]model.VolumeBucket{
		testPool: {{Minute: 28333333, Amount: 120}, {Minute: 28333334, Amount: 7}},
		"0x0000000000000000000000000000000000000001": {{Minute: 5, Amount: 1}},
	}
	require.NoError(t, file.Save(windows))

	data, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"`+testPool+`":[[28333333,120],[28333334,7]]`)

	loaded, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, windows, loaded)
}

func TestWindowFileMissingIsEmpty(t *testing.T) {
	file := &WindowFile{Path: filepath.Join(t.TempDir(), "absent.json")}
	loaded, err := file.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestWindowFileCorruptReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume_cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0xabc":[[1]]}`), 0o644))

	loaded, err := (&WindowFile{Path: path}).Load()
	require.Error(t, err)
	assert.Empty(t, loaded)
}
