package tryon

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler - 빌드된 클라이언트(SPA) 서빙, 없는 경로는 index.html 로 폴백
// /api, /uploads 아래의 미등록 경로는 JSON 404
type StaticHandler struct {
	root string
}

// NewStaticHandler - root 가 비어있으면 모든 미등록 경로를 JSON 404 로 처리
func NewStaticHandler(root string) *StaticHandler {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &StaticHandler{root: root}
}

func (s *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	if s.root == "" || isAPIPath(clean) || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		NotFound(w, r)
		return
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		http.ServeFile(w, r, full)
		return
	}

	index := filepath.Join(s.root, "index.html")
	if _, err := os.Stat(index); err != nil {
		NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/") || p == "/uploads" || strings.HasPrefix(p, "/uploads/")
}
