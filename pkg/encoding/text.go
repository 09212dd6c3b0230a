// Package encoding provides text helpers for Terraria save data.
package encoding

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// DecodeString converts a length-prefixed save string to a Go string.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func DecodeString(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(result)
}

// EncodeString returns the 7-bit length prefixed form of s.
func EncodeString(s string) []byte {
	out := make([]byte, 0, len(s)+5)
	n := uint32(len(s))
	for n >= 0x80 {
		out = append(out, byte(n)|0x80)
		n >>= 7
	}
	out = append(out, byte(n))
	return append(out, s...)
}

func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

// SortNames sorts display names in place using case-insensitive English collation.
func SortNames(names []string) {
	newCollator().SortStrings(names)
}

// SortByName stably sorts items by the display name returned by name, using
// the same collation as SortNames. Each name is keyed once.
func SortByName[T any](items []T, name func(T) string) {
	c := newCollator()
	var buf collate.Buffer
	type keyed struct {
		key  []byte
		item T
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		ks[i] = keyed{key: c.KeyFromString(&buf, name(it)), item: it}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		return bytes.Compare(ks[i].key, ks[j].key) < 0
	})
	for i := range ks {
		items[i] = ks[i].item
	}
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}
