package utils

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rs/zerolog/log"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

var mimeByExt = map[string]string{
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".png":  MimePNG,
	".webp": MimeWebP,
}

// MimeTypeFromPath - 확장자로 MIME 타입 추론 (모르는 확장자는 image/jpeg)
func MimeTypeFromPath(path string) string {
	if mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return MimeJPEG
}

// ExtForMimeType - MIME 타입에 맞는 확장자 (모르면 빈 문자열)
func ExtForMimeType(mime string) string {
	switch strings.ToLower(mime) {
	case MimeJPEG, "image/jpg":
		return ".jpg"
	case MimePNG:
		return ".png"
	case MimeWebP:
		return ".webp"
	}
	return ""
}

// IsRecognizedExt - jpg/jpeg/png/webp 인지
func IsRecognizedExt(ext string) bool {
	_, ok := mimeByExt[strings.ToLower(ext)]
	return ok
}

// ToPNG - PNG 가 아닌 이미지를 PNG 로 변환 (PNG 는 그대로 반환)
func ToPNG(data []byte, mimeType string) ([]byte, error) {
	if strings.EqualFold(mimeType, MimePNG) {
		return data, nil
	}

	log.Debug().Msgf("🔄 Converting %s to PNG (%d bytes)", mimeType, len(data))

	var (
		img image.Image
		err error
	)
	if strings.EqualFold(mimeType, MimeWebP) {
		img, err = webp.Decode(bytes.NewReader(data), &decoder.Options{})
	} else {
		img, err = imaging.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Debug().Msgf("✅ Converted to PNG: %d bytes → %d bytes", len(data), buf.Len())
	return buf.Bytes(), nil
}
