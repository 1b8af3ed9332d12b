package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Image limits for uploads to a vision backend
const (
	MaxImageFileSize  = 10 * 1024 * 1024 // 10MB
	MaxImageDimension = 1024             // px, longest side
	imageQuality      = 85               // JPEG quality
)

// IsRemoteImage reports whether ref can be sent to a backend as-is
func IsRemoteImage(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}

// ResolveImageURL returns an URL a backend can read. Remote and data URLs
// pass through; local files are downsized and turned into a data URL.
func ResolveImageURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("image reference is empty")
	}
	if IsRemoteImage(ref) {
		return ref, nil
	}
	return LoadImageDataURL(strings.TrimPrefix(ref, "file://"))
}

// LoadImageDataURL reads a local image, shrinks it so that its longest side
// is at most MaxImageDimension and returns it as a base64 data URL
func LoadImageDataURL(filePath string) (string, error) {
	// Check file exists
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}

	// Check file size
	if fileInfo.Size() > MaxImageFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", fileInfo.Size(), MaxImageFileSize)
	}

	if !IsImageFile(filePath) {
		return "", fmt.Errorf("file type not supported: %s", GetMimeType(filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	data, mimeType, err := EncodeImage(img, format)
	if err != nil {
		return "", err
	}
	return DataURL(mimeType, data), nil
}

// EncodeImage downsizes img if needed and encodes it, keeping PNG as PNG and
// converting everything else to JPEG
func EncodeImage(img image.Image, format string) ([]byte, string, error) {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	if width > MaxImageDimension || height > MaxImageDimension {
		// Keep the aspect ratio
		if width > height {
			img = resize.Resize(MaxImageDimension, 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, MaxImageDimension, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	mimeType := "image/jpeg"
	var err error
	if format == "png" {
		mimeType = "image/png"
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: imageQuality})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), mimeType, nil
}

// DataURL builds a base64 data URL
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
