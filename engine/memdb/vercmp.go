package memdb

import "strings"

// VerCmp compares two version strings of the form [epoch:]version[-release].
// It returns -1, 0 or 1.
func VerCmp(a, b string) int {
	if a == b {
		return 0
	}
	e1, v1, r1 := parseEVR(a)
	e2, v2, r2 := parseEVR(b)

	ret := segmentCmp(e1, e2)
	if ret == 0 {
		ret = segmentCmp(v1, v2)
		if ret == 0 && r1 != "" && r2 != "" {
			ret = segmentCmp(r1, r2)
		}
	}
	return ret
}

// parseEVR splits evr. The epoch is the leading run of digits when it is
// followed by ':'; the release is whatever follows the last '-' after it.
func parseEVR(evr string) (epoch, version, release string) {
	i := 0
	for i < len(evr) && isDigit(evr[i]) {
		i++
	}
	rest := evr
	epoch = "0"
	if i < len(evr) && evr[i] == ':' {
		if i > 0 {
			epoch = evr[:i]
		}
		rest = evr[i+1:]
		i = 0
	}
	if j := strings.LastIndexByte(rest[i:], '-'); j >= 0 {
		return epoch, rest[:i+j], rest[i+j+1:]
	}
	return epoch, rest, ""
}

// segmentCmp walks both strings alternating numeric and alphabetic
// segments. Numeric segments beat alphabetic ones and compare by value;
// separators only matter by their length.
func segmentCmp(a, b string) int {
	if a == b {
		return 0
	}
	one, two := 0, 0
	prev1, prev2 := 0, 0

	for one < len(a) && two < len(b) {
		for one < len(a) && !isAlnum(a[one]) {
			one++
		}
		for two < len(b) && !isAlnum(b[two]) {
			two++
		}
		if one >= len(a) || two >= len(b) {
			break
		}
		if sep1, sep2 := one-prev1, two-prev2; sep1 != sep2 {
			if sep1 < sep2 {
				return -1
			}
			return 1
		}

		end1, end2 := one, two
		isNum := isDigit(a[end1])
		if isNum {
			for end1 < len(a) && isDigit(a[end1]) {
				end1++
			}
			for end2 < len(b) && isDigit(b[end2]) {
				end2++
			}
		} else {
			for end1 < len(a) && isAlpha(a[end1]) {
				end1++
			}
			for end2 < len(b) && isAlpha(b[end2]) {
				end2++
			}
		}

		if two == end2 {
			if isNum {
				return 1
			}
			return -1
		}

		seg1, seg2 := a[one:end1], b[two:end2]
		if isNum {
			seg1 = strings.TrimLeft(seg1, "0")
			seg2 = strings.TrimLeft(seg2, "0")
			if len(seg1) > len(seg2) {
				return 1
			}
			if len(seg2) > len(seg1) {
				return -1
			}
		}
		if c := strings.Compare(seg1, seg2); c != 0 {
			return c
		}

		one, two = end1, end2
		prev1, prev2 = end1, end2
	}

	if one >= len(a) && two >= len(b) {
		return 0
	}
	// A leftover alphabetic segment never beats an empty string.
	if (one >= len(a) && !isAlpha(b[two])) || (one < len(a) && isAlpha(a[one])) {
		return -1
	}
	return 1
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }
