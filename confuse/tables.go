package confuse

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var ErrInvalidTables = errors.New("invalid substitution tables")

// Tables is the JSON-compatible export of a Map.
type Tables struct {
	ID                string            `json:"id,omitempty"`
	NumberMap         map[string]string `json:"numberMap"`
	ChineseMap        map[string]string `json:"chineseMap"`
	ReverseNumberMap  map[string]string `json:"reverseNumberMap"`
	ReverseChineseMap map[string]string `json:"reverseChineseMap"`
}

// Count is the number of mapped symbols per alphabet.
type Count struct {
	Numbers int `json:"numbers"`
	Chinese int `json:"chinese"`
}

// Tables exports m as string-keyed maps.
func (m *Map) Tables() *Tables {
	return &Tables{
		NumberMap:         toStrings(m.number),
		ChineseMap:        toStrings(m.chinese),
		ReverseNumberMap:  toStrings(m.reverseNumber),
		ReverseChineseMap: toStrings(m.reverseChinese),
	}
}

// Count returns how many symbols m maps.
func (m *Map) Count() Count {
	return Count{Numbers: len(m.number), Chinese: len(m.chinese)}
}

// FromTables restores a Map from its export. The forward maps must be bijections onto the
// built-in alphabets; reverse maps, when present, must be their exact inverses.
func FromTables(t *Tables) (*Map, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidTables)
	}

	number, err := parseForward("number", t.NumberMap, NumberChars, NumberTargetChars)
	if err != nil {
		return nil, err
	}
	chinese, err := parseForward("chinese", t.ChineseMap, ChineseChars, ChineseTargetChars)
	if err != nil {
		return nil, err
	}

	m := newMap(number, chinese)
	if len(t.ReverseNumberMap) > 0 && !equalStrings(t.ReverseNumberMap, toStrings(m.reverseNumber)) {
		return nil, fmt.Errorf("%w: reverse number map is not the inverse", ErrInvalidTables)
	}
	if len(t.ReverseChineseMap) > 0 && !equalStrings(t.ReverseChineseMap, toStrings(m.reverseChinese)) {
		return nil, fmt.Errorf("%w: reverse chinese map is not the inverse", ErrInvalidTables)
	}
	return m, nil
}

func parseForward(name string, in map[string]string, sources, targets []rune) (map[rune]rune, error) {
	if len(in) != len(sources) {
		return nil, fmt.Errorf("%w: %s map has %d entries, want %d", ErrInvalidTables, name, len(in), len(sources))
	}

	allowedSrc := make(map[rune]struct{}, len(sources))
	for _, r := range sources {
		allowedSrc[r] = struct{}{}
	}
	allowedDst := make(map[rune]struct{}, len(targets))
	for _, r := range targets {
		allowedDst[r] = struct{}{}
	}

	out := make(map[rune]rune, len(in))
	seen := make(map[rune]struct{}, len(in))
	for k, v := range in {
		src, ok1 := single(k)
		dst, ok2 := single(v)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: %s entry %q -> %q is not single symbols", ErrInvalidTables, name, k, v)
		}
		if _, ok := allowedSrc[src]; !ok {
			return nil, fmt.Errorf("%w: %s source %q is unknown", ErrInvalidTables, name, k)
		}
		if _, ok := allowedDst[dst]; !ok {
			return nil, fmt.Errorf("%w: %s target %q is unknown", ErrInvalidTables, name, v)
		}
		if _, dup := seen[dst]; dup {
			return nil, fmt.Errorf("%w: %s target %q used twice", ErrInvalidTables, name, v)
		}
		seen[dst] = struct{}{}
		out[src] = dst
	}
	return out, nil
}

func single(s string) (rune, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, r != utf8.RuneError
}

func toStrings(in map[rune]rune) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[string(k)] = string(v)
	}
	return out
}

func equalStrings(a, b map[string]string) bool {
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
