package tryon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tryon-server/modules/common/utils"
)

// ErrImageNotFound - 참조 이미지를 찾을 수 없음
var ErrImageNotFound = errors.New("clothing image not found")

// ImageResolver - 의류 참조 이미지 조회 (읽기 전용)
type ImageResolver interface {
	Resolve(imageRef string) (data []byte, mimeType string, err error)
}

// CatalogResolver - 공개 디렉터리(public/) 아래의 카탈로그 이미지 조회
type CatalogResolver struct {
	root string
}

// NewCatalogResolver - root 아래에서만 이미지를 읽는 resolver 생성
func NewCatalogResolver(root string) (*CatalogResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog dir: %w", err)
	}
	return &CatalogResolver{root: abs}, nil
}

// Resolve - "/Images/Denim Shirt.webp" 같은 참조를 root 기준으로 읽음
func (r *CatalogResolver) Resolve(imageRef string) ([]byte, string, error) {
	ref := strings.TrimSpace(imageRef)
	if ref == "" {
		return nil, "", ErrImageNotFound
	}

	// "/" 기준으로 정리해서 root 밖으로 나가지 못하게 함
	cleaned := filepath.Clean("/" + filepath.ToSlash(ref))
	path := filepath.Join(r.root, filepath.FromSlash(cleaned))

	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, "", fmt.Errorf("%w: %s", ErrImageNotFound, imageRef)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return nil, "", fmt.Errorf("read clothing image %s: %w", path, err)
	}

	return data, utils.MimeTypeFromPath(path), nil
}
