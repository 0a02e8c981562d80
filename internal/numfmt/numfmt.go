package numfmt

import "strconv"

var suffixes = []string{"K", "M", "B", "T", "Q"}

// Format renders n compactly: exact below 1000, otherwise one suffix with at
// most one truncated decimal ("1K", "1.2K", "999.9K", "1.5M").
func Format(n int64) string {
	if n < 0 {
		if n == -n {
			// math.MinInt64 has no positive counterpart
			return "-" + format(uint64(1)<<63)
		}
		return "-" + format(uint64(-n))
	}
	return format(uint64(n))
}

func format(n uint64) string {
	if n < 1000 {
		return strconv.FormatUint(n, 10)
	}

	unit := uint64(1000)
	idx := 0
	for idx < len(suffixes)-1 && n/unit >= 1000 {
		unit *= 1000
		idx++
	}

	whole := n / unit
	tenth := (n % unit) * 10 / unit

	out := strconv.FormatUint(whole, 10)
	if tenth > 0 {
		out += "." + strconv.FormatUint(tenth, 10)
	}
	return out + suffixes[idx]
}
