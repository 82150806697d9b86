package values

import "testing"

func TestHeaderTextRoundtrip(t *testing.T) {
	v := New()
	v.Set("c", "CASE-001")
	v.Set("n", "EV-1")
	v.Set("e", "J. Examiner")
	v.Set("av", "1.0.0")

	text := EncodeHeaderText(v, "main")
	got, err := ParseHeaderText(text)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"c", "n", "e", "av"} {
		want, _ := v.Get(k)
		gotVal, ok := got.Get(k)
		if !ok || gotVal != want {
			t.Fatalf("key %q: got %q (ok=%v), want %q", k, gotVal, ok, want)
		}
	}
}

func TestHeaderBytesRoundtrip(t *testing.T) {
	v := New()
	v.Set("c", "CASE-002")
	v.Set("t", "some notes with unicode: éè")
	text := EncodeHeaderText(v, "main")

	encoded, err := EncodeHeaderBytes(text)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeHeaderBytes(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != text {
		t.Fatalf("roundtrip mismatch:\n got: %q\nwant: %q", decoded, text)
	}
}

func TestHashTextRoundtrip(t *testing.T) {
	v := New()
	v.Set("MD5", "d41d8cd98f00b204e9800998ecf8427e")
	v.Set("SHA1", "da39a3ee5e6b4b0d3255bfef95601890afd80709")

	text := EncodeHashText(v)
	got, err := ParseHashText(text)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"MD5", "SHA1"} {
		want, _ := v.Get(k)
		gotVal, ok := got.Get(k)
		if !ok || gotVal != want {
			t.Fatalf("key %q mismatch: got %q, want %q", k, gotVal, want)
		}
	}
}

func TestValuesPreservesOrderAndUpdatesInPlace(t *testing.T) {
	v := New()
	v.Set("a", "1")
	v.Set("b", "2")
	v.Set("a", "updated")

	keys := v.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected key order: %v", keys)
	}
	got, _ := v.Get("a")
	if got != "updated" {
		t.Fatalf("expected update in place, got %q", got)
	}
}
