package confuse

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

//go:embed data/chinese.txt
var chineseFile string

// first private-use code point handed out once printable ASCII runs out
const privateUseBase = 0xE000

var (
	NumberChars        []rune
	NumberTargetChars  []rune
	ChineseChars       []rune
	ChineseTargetChars []rune
)

// asciiTargets are the printable ASCII symbols for the leading Chinese characters:
// k-y for the numeral characters, then z, A-Z and punctuation.
const asciiTargets = "klmnopqrstuvwxy" +
	"zABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"!@#$%^&*()-_=+[]{}|\\;:'\"<>,.?/`~"

func init() {
	NumberChars = []rune("0123456789")
	NumberTargetChars = []rune("abcdefghij")

	// one or more characters per line, whitespace ignored
	ChineseChars = []rune(strings.Join(strings.Fields(chineseFile), ""))

	ChineseTargetChars = []rune(asciiTargets)
	for i := 0; len(ChineseTargetChars) < len(ChineseChars); i++ {
		ChineseTargetChars = append(ChineseTargetChars, rune(privateUseBase+i))
	}

	if err := checkAlphabets(); err != nil {
		panic(fmt.Sprintf("confuse: %v", err))
	}
}

// checkAlphabets enforces the invariants every generated map relies on: equal sizes per
// pair, no duplicates, and all four alphabets pairwise disjoint.
func checkAlphabets() error {
	if len(NumberChars) != len(NumberTargetChars) {
		return fmt.Errorf("number alphabet size %d != target size %d", len(NumberChars), len(NumberTargetChars))
	}
	if len(ChineseChars) != len(ChineseTargetChars) {
		return fmt.Errorf("chinese alphabet size %d != target size %d", len(ChineseChars), len(ChineseTargetChars))
	}

	all := make([]rune, 0, 2*(len(NumberChars)+len(ChineseChars)))
	all = append(all, NumberChars...)
	all = append(all, NumberTargetChars...)
	all = append(all, ChineseChars...)
	all = append(all, ChineseTargetChars...)
	if dup := lo.FindDuplicates(all); len(dup) > 0 {
		return fmt.Errorf("alphabets overlap on %q", string(dup))
	}

	// targets must be visible glyphs
	for _, r := range ChineseTargetChars {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("target %U is not printable", r)
		}
	}
	return nil
}

// GetChineseChars returns the Chinese source alphabet
func GetChineseChars() []rune {
	return ChineseChars
}

// HasSourceSymbol checks whether r belongs to either source alphabet
func HasSourceSymbol(r rune) bool {
	return lo.Contains(NumberChars, r) || lo.Contains(ChineseChars, r)
}
