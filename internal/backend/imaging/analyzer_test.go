package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzer_Analyze(t *testing.T) {
	data := createTestPNG(t, 40, 20)
	analyzer := NewAnalyzer(&StaticRecognizer{Text: "Total $12.95 34.9 kWh"})

	analysis, err := analyzer.Analyze(context.Background(), data)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if analysis.Hash != Fingerprint(data) {
		t.Errorf("expected hash %s, got %s", Fingerprint(data), analysis.Hash)
	}
	if analysis.Text != "Total $12.95 34.9 kWh" {
		t.Errorf("unexpected text %q", analysis.Text)
	}
	if analysis.Metadata[MetadataFormat] != "png" {
		t.Errorf("expected png format, got %q", analysis.Metadata[MetadataFormat])
	}
}

func TestAnalyzer_RecognizerError(t *testing.T) {
	analyzer := NewAnalyzer(&StaticRecognizer{Err: errors.New("ocr unavailable")})

	_, err := analyzer.Analyze(context.Background(), createTestPNG(t, 4, 4))
	if err == nil {
		t.Fatalf("expected error from failing recognizer")
	}
}

func TestAnalyzer_EmptyImage(t *testing.T) {
	analyzer := NewAnalyzer(&StaticRecognizer{})
	if _, err := analyzer.Analyze(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Fingerprint([]byte("abc")); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Errorf("expected different inputs to have different fingerprints")
	}
}
