package downloader

import "miyuki-dl/pkg/models"

// Partition splits [0, total) into n contiguous ranges. All ranges but the last
// share the same size and the last one absorbs the remainder, so with n >= total
// some ranges are empty.
func Partition(total, n int) []models.SegmentRange {
	if n <= 0 {
		n = 1
	}
	if total < 0 {
		total = 0
	}

	size := total / n
	ranges := make([]models.SegmentRange, 0, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = total
		}
		ranges = append(ranges, models.SegmentRange{Start: start, End: end})
	}
	return ranges
}
