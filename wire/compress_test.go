// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestCompressionTagString(t *testing.T) {
	tests := []struct {
		tag  CompressionTag
		want string
	}{
		{CompressionNone, "none"},
		{CompressionLZ4, "lz4"},
		{CompressionZstd, "zstd"},
		{CompressionTag(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.tag.String()
			if got != tt.want {
				t.Errorf("CompressionTag(%d).String() = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		t.Run(name, func(t *testing.T) {
			tag, err := ParseCompressionTag(name)
			if err != nil {
				t.Fatalf("ParseCompressionTag(%q) failed: %v", name, err)
			}
			if tag.String() != name {
				t.Errorf("roundtrip: ParseCompressionTag(%q).String() = %q", name, tag.String())
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseCompressionTag("gzip")
		if err == nil {
			t.Error("ParseCompressionTag(\"gzip\") should fail")
		}
	})
}

func TestCompressDecompressNone(t *testing.T) {
	data := []byte("uncompressed data should pass through unchanged")

	compressed, err := Compress(data, CompressionNone)
	if err != nil {
		t.Fatalf("Compress(none) failed: %v", err)
	}

	// For CompressionNone, the output should be the same slice.
	if &compressed[0] != &data[0] {
		t.Error("CompressionNone should return the same slice, not a copy")
	}

	decompressed, err := Decompress(compressed, CompressionNone, len(data))
	if err != nil {
		t.Fatalf("Decompress(none) failed: %v", err)
	}

	if !bytes.Equal(decompressed, data) {
		t.Error("none compression roundtrip failed")
	}
}

func TestDecompressNoneSizeMismatch(t *testing.T) {
	data := []byte("five bytes extra")
	_, err := Decompress(data, CompressionNone, len(data)-5)
	if err == nil {
		t.Error("size mismatch should be rejected")
	}
}

// compressibleData builds a payload shaped like serialized tree
// content: repetitive keys and labels.
func compressibleData(size int) []byte {
	var buffer bytes.Buffer
	for buffer.Len() < size {
		buffer.WriteString(`{"id":1,"role":"button","label":"Submit order"}`)
	}
	return buffer.Bytes()[:size]
}

func TestCompressDecompressRoundtrip(t *testing.T) {
	data := compressibleData(8 * 1024)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, err := Compress(data, tag)
			if err != nil {
				t.Fatalf("Compress(%s) failed: %v", tag, err)
			}
			if len(compressed) >= len(data) {
				t.Errorf("%s did not shrink repetitive data: %d >= %d",
					tag, len(compressed), len(data))
			}

			decompressed, err := Decompress(compressed, tag, len(data))
			if err != nil {
				t.Fatalf("Decompress(%s) failed: %v", tag, err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Errorf("%s roundtrip corrupted data", tag)
			}
		})
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			_, err := Compress(data, tag)
			if !IsIncompressible(err) {
				t.Errorf("random data should be incompressible, got %v", err)
			}
		})
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := compressibleData(4096)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, err := Compress(data, tag)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if _, err := Decompress(compressed, tag, len(data)+1); err == nil {
				t.Error("wrong uncompressed size should be rejected")
			}
		})
	}
}

func TestDecompressUnknownTag(t *testing.T) {
	_, err := Decompress([]byte{1, 2, 3}, CompressionTag(42), 3)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("unknown tag: got %v, want unsupported-tag error", err)
	}
}
