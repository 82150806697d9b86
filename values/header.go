package values

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// KnownHeaderKeys lists the case/acquisition fields spec.md §3 names for
// header/header2/xheader payloads: case number, evidence number, examiner,
// notes, acquisition OS/software/version, acquiry/system date, password
// hash, compression type. Order here is the canonical field order for a
// freshly written header; a parsed header preserves whatever order the
// source container used.
var KnownHeaderKeys = []string{
	"c",  // case number
	"n",  // evidence number
	"a",  // unique description
	"e",  // examiner name
	"t",  // notes
	"av", // acquisition software version
	"ov", // acquisition platform/operating system
	"m",  // acquisition date
	"u",  // system date
	"p",  // password hash
	"r",  // compression/char set marker
}

// ParseHeaderText parses the tab-delimited `header`/`header2`/`xheader`
// textual layout: a value count line, a category name ("main"), a line of
// tab-separated field identifiers, and a line of tab-separated values.
// Grounded on the teacher's internal/ewf.go ParseHeader (lines[0..3]).
func ParseHeaderText(text string) (*Values, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("values: header text has %d lines, need at least 4", len(lines))
	}
	keys := strings.Split(lines[2], "\t")
	vals := strings.Split(lines[3], "\t")
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("values: header field/value count mismatch: %d keys, %d values", len(keys), len(vals))
	}
	out := New()
	for i, k := range keys {
		out.Set(strings.TrimSpace(k), vals[i])
	}
	return out, nil
}

// EncodeHeaderText serializes v back into the header textual layout, using
// KnownHeaderKeys order for any keys present in v and preserving any extra
// keys (not in KnownHeaderKeys) afterward in their stored order.
func EncodeHeaderText(v *Values, category string) string {
	seen := make(map[string]bool, v.Len())
	var keys []string
	for _, k := range KnownHeaderKeys {
		if _, ok := v.Get(k); ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for _, p := range v.Pairs() {
		if !seen[p.Key] {
			keys = append(keys, p.Key)
		}
	}

	vals := make([]string, len(keys))
	for i, k := range keys {
		val, _ := v.Get(k)
		vals[i] = val
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", 1)
	fmt.Fprintf(&b, "%s\n", category)
	b.WriteString(strings.Join(keys, "\t"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(vals, "\t"))
	b.WriteByte('\n')
	b.WriteByte('\n')
	return b.String()
}

// DecodeHeaderBytes converts the raw (already zlib-inflated) bytes of a
// v1 `header`/`header2` section payload to UTF-8 text, detecting a UTF-16
// byte-order mark as the teacher does and falling back to treating the
// bytes as already-UTF-8 (the v2 `xheader` case) when no BOM is present.
func DecodeHeaderBytes(raw []byte) (string, error) {
	if len(raw) >= 2 {
		switch {
		case raw[0] == 0xfe && raw[1] == 0xff:
			return decodeUTF16(raw, unicode.BigEndian)
		case raw[0] == 0xff && raw[1] == 0xfe:
			return decodeUTF16(raw, unicode.LittleEndian)
		}
	}
	return string(raw), nil
}

func decodeUTF16(raw []byte, endian unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("values: decode UTF-16 header: %w", err)
	}
	return string(out), nil
}

// EncodeHeaderBytes converts UTF-8 header text to the v1 on-disk form: a
// UTF-16LE byte-order mark followed by UTF-16LE code units, matching every
// EnCase/FTK writer's convention (the teacher's HeaderSection.ByteOrderMark
// = {0xff, 0xfe}). v2 `xheader` payloads instead write UTF-8 directly and
// should not call this.
func EncodeHeaderBytes(text string) ([]byte, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("values: encode UTF-16 header: %w", err)
	}
	return out, nil
}

// ParseHashText parses the xhash textual layout: repeated `key\nvalue\n`
// pairs (MD5, SHA1, SHA256), per original_source/ewftools/digest_hash.h.
func ParseHashText(text string) (*Values, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("values: xhash text has odd line count %d", len(lines))
	}
	out := New()
	for i := 0; i < len(lines); i += 2 {
		out.Set(strings.TrimSpace(lines[i]), strings.TrimSpace(lines[i+1]))
	}
	return out, nil
}

// EncodeHashText serializes v in the xhash key/value-per-line layout.
func EncodeHashText(v *Values) string {
	var b strings.Builder
	for _, p := range v.Pairs() {
		b.WriteString(p.Key)
		b.WriteByte('\n')
		b.WriteString(p.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// ValueCount returns the declared entry count from the first line of a
// header text blob, used when sanity-checking a parse against lines[2].
func ValueCount(text string) (int, error) {
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) == 0 {
		return 0, fmt.Errorf("values: empty header text")
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, fmt.Errorf("values: invalid header value count %q: %w", lines[0], err)
	}
	return n, nil
}
