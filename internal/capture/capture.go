package capture

import (
	"fmt"
	"image"
	"image/jpeg"
	log "log/slog"
	"os"

	"github.com/kbinani/screenshot"
)

// Visual context only needs to be legible to a vision model, not archival.
const jpegQuality = 15

// Screen grabs the primary display and persists it as a low-quality JPEG at
// a fixed path, overwriting the previous capture.
type Screen struct {
	Path string
}

func NewScreen(path string) *Screen {
	return &Screen{Path: path}
}

func (s *Screen) Capture() (string, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return "", fmt.Errorf("no active displays")
	}

	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return "", fmt.Errorf("capture display: %w", err)
	}

	if err := saveJPEG(s.Path, img); err != nil {
		return "", err
	}

	log.Debug("Captured screen", "path", s.Path, "bounds", img.Bounds())
	return s.Path, nil
}

func saveJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return nil
}
