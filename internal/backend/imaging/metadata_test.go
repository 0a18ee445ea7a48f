package imaging

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jo-hoe/kwhledger/internal/backend/extraction"
)

func TestReadMetadata_PNG(t *testing.T) {
	metadata := ReadMetadata(createTestPNG(t, 30, 10))

	if metadata[MetadataFormat] != "png" {
		t.Errorf("expected format png, got %q", metadata[MetadataFormat])
	}
	if metadata[MetadataWidth] != "30" || metadata[MetadataHeight] != "10" {
		t.Errorf("unexpected dimensions %sx%s", metadata[MetadataWidth], metadata[MetadataHeight])
	}
	if _, ok := metadata["DateTimeOriginal"]; ok {
		t.Errorf("expected no exif tags on a generated png")
	}
}

func TestReadMetadata_JPEGWithExif(t *testing.T) {
	data, err := os.ReadFile("testdata/meter_exif.jpg")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	metadata := ReadMetadata(data)
	if metadata[MetadataFormat] != "jpeg" {
		t.Errorf("expected format jpeg, got %q", metadata[MetadataFormat])
	}
	if metadata[MetadataWidth] != "2" || metadata[MetadataHeight] != "2" {
		t.Errorf("unexpected dimensions %sx%s", metadata[MetadataWidth], metadata[MetadataHeight])
	}
	if metadata["DateTimeOriginal"] != "2024:03:15 14:30:00" {
		t.Errorf("unexpected DateTimeOriginal %q", metadata["DateTimeOriginal"])
	}
	if metadata["DateTime"] != "2024:03:20 08:00:00" {
		t.Errorf("unexpected DateTime %q", metadata["DateTime"])
	}

	location := time.FixedZone("CST", -6*60*60)
	taken := extraction.ParseMetadataTime(metadata, location)
	if taken == nil {
		t.Fatal("expected a capture time from the exif tags")
	}
	want := time.Date(2024, time.March, 15, 14, 30, 0, 0, location)
	if !taken.Equal(want) {
		t.Errorf("expected capture time %v, got %v", want, *taken)
	}
}

func TestReadMetadata_NotAnImage(t *testing.T) {
	metadata := ReadMetadata([]byte("definitely not an image"))
	if len(metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", metadata)
	}
}

func TestEncodeMetadata(t *testing.T) {
	encoded, err := EncodeMetadata(map[string]string{"Format": "jpeg"})
	if err != nil {
		t.Fatalf("EncodeMetadata error: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		t.Fatalf("encoded metadata is not json: %v", err)
	}
	if decoded["Format"] != "jpeg" {
		t.Errorf("unexpected decoded metadata %v", decoded)
	}

	empty, err := EncodeMetadata(nil)
	if err != nil {
		t.Fatalf("EncodeMetadata(nil) error: %v", err)
	}
	if empty != "{}" {
		t.Errorf("expected {}, got %s", empty)
	}
}
