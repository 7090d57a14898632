package vcdiff

import (
	"bytes"
	"testing"
)

func TestDecoderPolicyMaxTargetWindowSize(t *testing.T) {
	dict := []byte("0123456789")
	delta := encodeSimple(t, false, dict, func(e *Encoder) {
		mustErr(t, e.Copy(0, 10))
	})
	d := NewDecoder(DecoderConfig{MaxTargetWindowSize: 5})
	if err := d.StartDecoding(dict); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out bytes.Buffer
	if _, err := d.DecodeChunk(delta, &out); err == nil {
		t.Fatal("DecodeChunk exceeding MaxTargetWindowSize: want error, got nil")
	}
}

func TestDecoderPolicyMaxTargetFileSize(t *testing.T) {
	dict := []byte("0123456789")
	delta := encodeSimple(t, false, dict, func(e *Encoder) {
		mustErr(t, e.Copy(0, 10))
	})
	d := NewDecoder(DecoderConfig{MaxTargetFileSize: 5})
	if err := d.StartDecoding(dict); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out bytes.Buffer
	if _, err := d.DecodeChunk(delta, &out); err == nil {
		t.Fatal("DecodeChunk exceeding MaxTargetFileSize: want error, got nil")
	}
}

func TestDecoderPolicyMaxSectionSize(t *testing.T) {
	dict := []byte("0123456789")
	delta := encodeSimple(t, false, dict, func(e *Encoder) {
		mustErr(t, e.Copy(0, 10))
	})
	d := NewDecoder(DecoderConfig{MaxSectionSize: 1})
	if err := d.StartDecoding(dict); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out bytes.Buffer
	if _, err := d.DecodeChunk(delta, &out); err == nil {
		t.Fatal("DecodeChunk with a delta bigger than MaxSectionSize: want error, got nil")
	}
}

func TestDecodeChunkStickyError(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	if err := d.StartDecoding(nil); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out bytes.Buffer
	// Malformed header: wrong magic byte.
	bad := []byte{0x00, 0xd6, 0xc3, 0x00, 0x00}
	_, err1 := d.DecodeChunk(bad, &out)
	if err1 == nil {
		t.Fatal("DecodeChunk with bad magic: want error, got nil")
	}
	_, err2 := d.DecodeChunk([]byte{0x01}, &out)
	if err2 != err1 {
		t.Fatalf("DecodeChunk after a failure returned a different error: %v vs %v", err2, err1)
	}
}

func TestStartDecodingResetsState(t *testing.T) {
	dict := []byte("0123456789")
	delta := encodeSimple(t, false, dict, func(e *Encoder) {
		mustErr(t, e.Copy(0, 10))
	})
	d := NewDecoder(DecoderConfig{})
	if err := d.StartDecoding(dict); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out1 bytes.Buffer
	if _, err := d.DecodeChunk(delta, &out1); err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if err := d.FinishDecoding(); err != nil {
		t.Fatalf("FinishDecoding: %v", err)
	}

	// Reuse the same Decoder for a second, independent file.
	if err := d.StartDecoding(dict); err != nil {
		t.Fatalf("second StartDecoding: %v", err)
	}
	var out2 bytes.Buffer
	if _, err := d.DecodeChunk(delta, &out2); err != nil {
		t.Fatalf("second DecodeChunk: %v", err)
	}
	if err := d.FinishDecoding(); err != nil {
		t.Fatalf("second FinishDecoding: %v", err)
	}
	if !bytes.Equal(out1.Bytes(), out2.Bytes()) {
		t.Fatalf("second decode of the same delta produced %q; want %q", out2.Bytes(), out1.Bytes())
	}
}

func TestDecoderTwoWindowsResetAddressCache(t *testing.T) {
	dict := []byte("abcdefghij")
	e := NewEncoder(false)
	var buf bytes.Buffer
	mustErr(t, e.WriteHeader(&buf, FormatExtensions{}))
	mustErr(t, e.Init(len(dict)))
	mustErr(t, e.Copy(0, 5))
	mustErr(t, e.Output(&buf))
	mustErr(t, e.Copy(5, 5))
	mustErr(t, e.Output(&buf))

	got := decodeAll(t, buf.Bytes(), dict, false)
	want := "abcdefghij"
	if string(got) != want {
		t.Fatalf("decoded %q; want %q", got, want)
	}
}

func TestDecoderEmptyInputIsTruncated(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	if err := d.StartDecoding(nil); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	if err := d.FinishDecoding(); err == nil {
		t.Fatal("FinishDecoding with no input at all: want error (no header seen), got nil")
	}
}

func TestDecoderRejectsSecondaryCompressor(t *testing.T) {
	var buf bytes.Buffer
	if _, err := writeFileHeader(&buf, FormatExtensions{}); err != nil {
		t.Fatalf("writeFileHeader: %v", err)
	}
	var win bytes.Buffer
	win.WriteByte(0) // Win_Indicator: no source
	var body bytes.Buffer
	writeTestVarint32(&body, 0) // target length
	body.WriteByte(0x01)       // Delta_Indicator: secondary compressor (unsupported)
	writeTestVarint32(&body, 0)
	writeTestVarint32(&body, 0)
	writeTestVarint32(&body, 0)
	writeTestVarint32(&win, uint32(body.Len()))
	win.Write(body.Bytes())
	buf.Write(win.Bytes())

	d := NewDecoder(DecoderConfig{})
	if err := d.StartDecoding(nil); err != nil {
		t.Fatalf("StartDecoding: %v", err)
	}
	var out bytes.Buffer
	if _, err := d.DecodeChunk(buf.Bytes(), &out); err == nil {
		t.Fatal("DecodeChunk with secondary-compressor bit set: want error, got nil")
	}
}
