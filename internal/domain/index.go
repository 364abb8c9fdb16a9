package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteRange is an inclusive byte span inside a remote object. Open ranges
// extend to the end of the object.
type ByteRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Open  bool  `json:"open"`
}

// Header renders the range as an HTTP Range header value.
func (r ByteRange) Header() string {
	if r.Open {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

func (r ByteRange) String() string {
	if r.Open {
		return fmt.Sprintf("%d-", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Index field positions, 0-based.
const (
	idxFieldOffset = 1
	idxFieldCode   = 3
	idxFieldLevel  = 4
)

// ResolveByteRange finds the message for code at level in a GRIB2 .idx text
// and returns its byte range. The range ends one byte before the next record
// with a parsable offset; if no such record follows, the range is open.
func ResolveByteRange(indexText, code, level string, match LevelMatch) (ByteRange, error) {
	lines := strings.Split(indexText, "\n")

	offsets := make([]*int64, len(lines))
	target := -1
	for i, line := range lines {
		fields := strings.Split(strings.TrimRight(line, "\r"), ":")
		if len(fields) > idxFieldOffset {
			if n, err := strconv.ParseInt(strings.TrimSpace(fields[idxFieldOffset]), 10, 64); err == nil && n >= 0 {
				offsets[i] = &n
			}
		}
		if target < 0 && len(fields) > idxFieldLevel && fields[idxFieldCode] == code && levelMatches(fields[idxFieldLevel], level, match) {
			target = i
		}
	}

	if target < 0 || offsets[target] == nil {
		return ByteRange{}, fmt.Errorf("%w: %s @ %s", ErrVariableNotIndexed, code, level)
	}

	r := ByteRange{Start: *offsets[target], Open: true}
	for _, next := range offsets[target+1:] {
		if next != nil {
			r.End, r.Open = *next-1, false
			break
		}
	}
	return r, nil
}

// ResolveVariable resolves v against indexText using its level match mode.
func ResolveVariable(indexText string, v Variable) (ByteRange, error) {
	return ResolveByteRange(indexText, v.ProductCode, v.Level, v.Match)
}

func levelMatches(field, level string, match LevelMatch) bool {
	if match == MatchPrefix {
		return strings.HasPrefix(field, level)
	}
	return field == level
}
