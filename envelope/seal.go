package envelope

import (
	"fmt"
	"strconv"
	"strings"
)

// FixedMarker fills the region the fixed-offset variant discards after "02".
const FixedMarker = "0000"

// SealInline frames key and cipherHex as the inline-key variant and returns the
// envelope together with the key length hint a receiver needs.
func SealInline(key, cipherHex string) (string, string) {
	var b strings.Builder
	b.Grow(len(Marker) + len(key) + len(Separator) + len(cipherHex) + len(Trailer))
	b.WriteString(Marker)
	b.WriteString(key)
	b.WriteString(Separator)
	b.WriteString(cipherHex)
	b.WriteString(Trailer)
	return b.String(), strconv.Itoa(len(key))
}

// SealFixed frames cipherHex as the fixed-offset variant. marker must fill the
// discarded region exactly.
func SealFixed(marker, cipherHex string, opts ...Option) (string, error) {
	o := options{fixedOffset: DefaultFixedOffset}
	for _, opt := range opts {
		opt(&o)
	}
	if len(Marker)+len(marker) != o.fixedOffset {
		return "", fmt.Errorf("marker length %d does not fill offset %d", len(marker), o.fixedOffset)
	}
	return Marker + marker + cipherHex + Trailer, nil
}
