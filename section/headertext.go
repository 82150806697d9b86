package section

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/sigsegv-forensics/ewfkit/values"
)

// DecodeHeaderSectionPayload inflates a `header`/`header2`/`xheader`
// section payload (zlib-wrapped, matching the teacher's use of
// compress/zlib for every header variant) and decodes its textual form
// into HeaderValues via package values.
func DecodeHeaderSectionPayload(raw []byte) (*values.Values, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: header section: zlib: %v", ErrMalformedPayload, err)
	}
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: header section: zlib: %v", ErrMalformedPayload, err)
	}
	text, err := values.DecodeHeaderBytes(inflated)
	if err != nil {
		return nil, err
	}
	return values.ParseHeaderText(text)
}

// EncodeHeaderSectionPayload serializes text as a zlib-wrapped payload. v1
// (`header`/`header2`) wraps UTF-16LE bytes; v2 (`xheader`) wraps UTF-8
// directly — callers choose by whether they pass through EncodeHeaderBytes
// first.
func EncodeHeaderSectionPayload(text string, utf16 bool) ([]byte, error) {
	var plain []byte
	if utf16 {
		enc, err := values.EncodeHeaderBytes(text)
		if err != nil {
			return nil, err
		}
		plain = enc
	} else {
		plain = []byte(text)
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("section: zlib header write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("section: zlib header close: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHashSectionPayload inflates and decodes an `xhash` section payload.
func DecodeHashSectionPayload(raw []byte) (*values.Values, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: xhash section: zlib: %v", ErrMalformedPayload, err)
	}
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: xhash section: zlib: %v", ErrMalformedPayload, err)
	}
	return values.ParseHashText(string(inflated))
}

// EncodeHashSectionPayload serializes v as zlib-wrapped xhash text.
func EncodeHashSectionPayload(v *values.Values) ([]byte, error) {
	text := values.EncodeHashText(v)
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("section: zlib xhash write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("section: zlib xhash close: %w", err)
	}
	return buf.Bytes(), nil
}
