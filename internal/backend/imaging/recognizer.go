package imaging

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer turns image bytes into recognized text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// TesseractRecognizer pipes the image through the tesseract command line.
type TesseractRecognizer struct {
	command string
	args    []string
}

// NewTesseractRecognizer uses "tesseract stdin stdout" plus extra args such
// as "-l eng" or "--psm 6".
func NewTesseractRecognizer(command string, extraArgs []string) *TesseractRecognizer {
	if command == "" {
		command = "tesseract"
	}
	args := append([]string{"stdin", "stdout"}, extraArgs...)
	return &TesseractRecognizer{command: command, args: args}
}

func (r *TesseractRecognizer) Name() string {
	return "tesseract"
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, imageData []byte) (string, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(imageData)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", r.command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// StaticRecognizer returns fixed text; used when OCR is disabled and in tests.
type StaticRecognizer struct {
	Text string
	Err  error
}

func (r *StaticRecognizer) Name() string {
	return "static"
}

func (r *StaticRecognizer) Recognize(ctx context.Context, imageData []byte) (string, error) {
	return r.Text, r.Err
}
