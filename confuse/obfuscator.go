package confuse

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"gomod.pri/codec/primitive"
)

// ============================================================================
// Substitution map - bijective symbol tables built from one shuffle
// ============================================================================

// Map is a bijection between the source alphabets and a shuffled copy of their targets.
// A Map is read-only after construction and safe for concurrent use.
type Map struct {
	number         map[rune]rune
	chinese        map[rune]rune
	reverseNumber  map[rune]rune
	reverseChinese map[rune]rune
}

// Options selects which source alphabets Encode substitutes.
type Options struct {
	Digits  bool
	Chinese bool
}

// NewSeededMap builds a deterministic map. Equal seeds yield equal maps.
func NewSeededMap(seed uint64) *Map {
	g := &lcg{state: seed}

	// 复制目标字符，避免打乱全局表
	numberTargets := append([]rune(nil), NumberTargetChars...)
	chineseTargets := append([]rune(nil), ChineseTargetChars...)

	// digits first, then Chinese, from the same generator
	shuffle(numberTargets, g)
	shuffle(chineseTargets, g)

	return newMap(zip(NumberChars, numberTargets), zip(ChineseChars, chineseTargets))
}

// NewVolatileMap builds a map seeded from r, or the process secure source when r is nil.
func NewVolatileMap(r io.Reader) (*Map, error) {
	seed, err := primitive.Uint64(r)
	if err != nil {
		return nil, err
	}
	return NewSeededMap(seed), nil
}

func newMap(number, chinese map[rune]rune) *Map {
	return &Map{
		number:         number,
		chinese:        chinese,
		reverseNumber:  lo.Invert(number),
		reverseChinese: lo.Invert(chinese),
	}
}

// Encode substitutes every enabled source symbol in one pass over text, so inserted
// target symbols are never matched again.
func Encode(text string, m *Map, opts Options) string {
	if text == "" || m == nil || (!opts.Digits && !opts.Chinese) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if opts.Digits {
			if t, ok := m.number[r]; ok {
				b.WriteRune(t)
				continue
			}
		}
		if opts.Chinese {
			if t, ok := m.chinese[r]; ok {
				b.WriteRune(t)
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Decode applies the inverse of m. The Chinese inverse is consulted before the digit
// inverse; the target alphabets are disjoint so the order only matters if that breaks.
func Decode(text string, m *Map) string {
	if text == "" || m == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if s, ok := m.reverseChinese[r]; ok {
			b.WriteRune(s)
			continue
		}
		if s, ok := m.reverseNumber[r]; ok {
			b.WriteRune(s)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Encode is shorthand for Encode(text, m, opts).
func (m *Map) Encode(text string, opts Options) string {
	return Encode(text, m, opts)
}

// Decode is shorthand for Decode(text, m).
func (m *Map) Decode(text string) string {
	return Decode(text, m)
}

// IsEncodedSymbol reports whether symbol is a single rune produced by this map.
func (m *Map) IsEncodedSymbol(symbol string) bool {
	if m == nil || utf8.RuneCountInString(symbol) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(symbol)
	if _, ok := m.reverseNumber[r]; ok {
		return true
	}
	_, ok := m.reverseChinese[r]
	return ok
}

// Lookup returns the target for a single source rune.
func (m *Map) Lookup(r rune) (rune, bool) {
	if t, ok := m.number[r]; ok {
		return t, true
	}
	t, ok := m.chinese[r]
	return t, ok
}

// Equal reports whether both maps hold the same permutation.
func (m *Map) Equal(o *Map) bool {
	if m == nil || o == nil {
		return m == o
	}
	return equalRunes(m.number, o.number) && equalRunes(m.chinese, o.chinese)
}

// ============================================================================
// Helpers
// ============================================================================

// lcg is the shuffle generator. It only adds variety and must never protect secrets.
type lcg struct {
	state uint64
}

// next returns an integer in [0, n)
func (g *lcg) next(n int) int {
	g.state = (g.state*1664525 + 1013904223) & 0xffffffff
	return int((g.state * uint64(n)) >> 32)
}

// shuffle is an in-place Fisher-Yates shuffle driven by g
func shuffle(runes []rune, g *lcg) {
	for i := len(runes) - 1; i > 0; i-- {
		j := g.next(i + 1)
		runes[i], runes[j] = runes[j], runes[i]
	}
}

func zip(keys, values []rune) map[rune]rune {
	out := make(map[rune]rune, len(keys))
	for i, k := range keys {
		out[k] = values[i]
	}
	return out
}

func equalRunes(a, b map[rune]rune) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
