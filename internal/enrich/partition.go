package enrich

// Range is the half-open index range [Start, End) of one batch.
type Range struct {
	Start int
	End   int
}

// Len returns the number of addresses in the range.
func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, n) into consecutive ranges of size addresses. The last
// range may be shorter. A non-positive size yields a single range.
func Partition(n, size int) []Range {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}
	ranges := make([]Range, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		ranges = append(ranges, Range{Start: start, End: min(start+size, n)})
	}
	return ranges
}
