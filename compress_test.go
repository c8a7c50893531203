package weave

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestZstd(t *testing.T) {
	levels := []zstd.EncoderLevel{zstd.SpeedFastest, zstd.SpeedDefault, zstd.SpeedBestCompression}
	payload := bytes.Repeat([]byte(`{"$id":"1","@A":"123"}`), 64)

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			c, err := Zstd(level)
			if err != nil {
				t.Fatalf("Zstd() error: %v", err)
			}
			packed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress() error: %v", err)
			}
			if len(packed) >= len(payload) {
				t.Errorf("compressed %d bytes into %d", len(payload), len(packed))
			}
			back, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress() error: %v", err)
			}
			if !bytes.Equal(back, payload) {
				t.Error("Decompress() did not restore the payload")
			}
		})
	}
}

func TestZstd_Empty(t *testing.T) {
	c, err := Zstd(zstd.SpeedDefault)
	if err != nil {
		t.Fatalf("Zstd() error: %v", err)
	}
	packed, _ := c.Compress(nil)
	if len(packed) == 0 {
		t.Error("zero frames should still be written for empty input")
	}
	back, err := c.Decompress(packed)
	if err != nil {
		t.Fatalf("Decompress() error: %v", err)
	}
	if len(back) != 0 {
		t.Errorf("Decompress() = %q, want empty", back)
	}
}

func TestZstd_Invalid(t *testing.T) {
	c, err := Zstd(zstd.SpeedDefault)
	if err != nil {
		t.Fatalf("Zstd() error: %v", err)
	}
	_, err = c.Decompress([]byte("not zstd"))
	if !errors.Is(err, ErrCompress) {
		t.Errorf("Decompress() error = %v, want ErrCompress", err)
	}
}

func TestLZ4(t *testing.T) {
	c := LZ4()
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"short", []byte("ab")},
		{"repetitive", bytes.Repeat([]byte(`<graph _id="1" A="123"/>`), 128)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := c.Compress(tt.payload)
			if err != nil {
				t.Fatalf("Compress() error: %v", err)
			}
			back, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress() error: %v", err)
			}
			if !bytes.Equal(back, tt.payload) {
				t.Errorf("Decompress() = %q, want %q", back, tt.payload)
			}
		})
	}

	big := bytes.Repeat([]byte("weave"), 1000)
	packed, _ := c.Compress(big)
	if len(packed) >= len(big) {
		t.Errorf("compressed %d bytes into %d", len(big), len(packed))
	}
}

func TestLZ4_Invalid(t *testing.T) {
	c := LZ4()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", []byte{5}},
		{"stored size mismatch", []byte{5, 0, 'a'}},
		{"unknown mode", []byte{1, 9, 'a'}},
		{"corrupt block", []byte{100, 1, 0xff, 0xff, 0xff}},
		{"oversized header", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x40, 1, 0}},
		{"size beyond block bound", []byte{0xe8, 0x07, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decompress(tt.data); !errors.Is(err, ErrCompress) {
				t.Errorf("Decompress() error = %v, want ErrCompress", err)
			}
		})
	}
}
