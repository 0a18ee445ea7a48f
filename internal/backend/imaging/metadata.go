package imaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MetadataFormat = "Format"
	MetadataWidth  = "Width"
	MetadataHeight = "Height"
)

// ReadMetadata collects best-effort metadata: the decoded format and
// dimensions plus every EXIF tag. Missing or corrupt sections are skipped.
func ReadMetadata(imageData []byte) map[string]string {
	metadata := make(map[string]string)

	config, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		slog.Debug("ReadMetadata: unable to decode image header", "error", err)
	} else {
		metadata[MetadataFormat] = format
		metadata[MetadataWidth] = strconv.Itoa(config.Width)
		metadata[MetadataHeight] = strconv.Itoa(config.Height)
	}

	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Debug("ReadMetadata: no exif data", "error", err)
		return metadata
	}
	if err := x.Walk(tagCollector(metadata)); err != nil {
		slog.Debug("ReadMetadata: exif walk aborted", "error", err)
	}
	return metadata
}

type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Format() == tiff.StringVal {
		value, err := tag.StringVal()
		if err != nil {
			return nil
		}
		c[string(name)] = strings.TrimRight(value, "\x00 ")
		return nil
	}
	c[string(name)] = tag.String()
	return nil
}

// EncodeMetadata serializes metadata for the fingerprint record.
func EncodeMetadata(metadata map[string]string) (string, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}
