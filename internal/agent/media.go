package agent

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/goclaw/internal/providers"
)

// defaultMaxImageBytes is the safety limit for reading image files (10MB),
// used when a persona's vision config doesn't set one.
const defaultMaxImageBytes = 10 * 1024 * 1024

// loadImages reads local image files and returns base64-encoded ImageContent
// slices. Non-image files and files that fail to read are skipped with a
// warning log. maxBytes <= 0 falls back to defaultMaxImageBytes, so personas
// sharing a provider with a smaller vision payload limit (set via
// config.VisionConfig.MaxImageBytes) can tighten it per agent.
func loadImages(paths []string, maxBytes int) []providers.ImageContent {
	if len(paths) == 0 {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}

	var images []providers.ImageContent
	for _, p := range paths {
		mime := inferImageMime(p)
		if mime == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			slog.Warn("vision: failed to read image file", "path", p, "error", err)
			continue
		}
		if len(data) > maxBytes {
			slog.Warn("vision: image file too large, skipping", "path", p, "size", len(data), "limit", maxBytes)
			continue
		}

		images = append(images, providers.ImageContent{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		})
	}
	return images
}

// inferImageMime returns the MIME type for supported image extensions, or "" if not an image.
func inferImageMime(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
