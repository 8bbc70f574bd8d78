package emvqr

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field is one TLV entry. A field with Sub set is a template; its value is
// the encoding of Sub and Value is ignored.
type Field struct {
	Tag   string
	Value string
	Sub   []Field
}

// Lookup follows a tag path through nested templates, e.g. Lookup(f, "62", "01").
func Lookup(fields []Field, path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	for _, f := range fields {
		if f.Tag != path[0] {
			continue
		}
		if len(path) == 1 {
			if f.Sub != nil {
				return encodeFields(f.Sub), true
			}
			return f.Value, true
		}
		return Lookup(f.Sub, path[1:]...)
	}
	return "", false
}

func encodeFields(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		v := f.Value
		if f.Sub != nil {
			v = encodeFields(f.Sub)
		}
		b.WriteString(f.Tag)
		fmt.Fprintf(&b, "%02d", utf8.RuneCountInString(v))
		b.WriteString(v)
	}
	return b.String()
}

// Encode serializes fields in order and appends the checksum field.
func Encode(fields []Field) string {
	s := encodeFields(fields) + TagCRC + "04"
	return s + checksumHex(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
