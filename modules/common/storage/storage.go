package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tryon-server/modules/common/cleanup"
)

// ErrTooLarge - 업로드가 크기 제한을 넘음
var ErrTooLarge = errors.New("file exceeds size limit")

// Artifact - 저장소에 기록된 임시 파일
type Artifact struct {
	Name string // 생성된 파일명 (generated-<uuid>.png)
	Path string // 디스크 경로
	URL  string // 공개 경로 (/uploads/<name>)
}

// Store - 로컬 디렉터리 기반 임시 파일 저장소
type Store struct {
	root      string
	urlPrefix string
	scheduler cleanup.Scheduler
}

// NewStore - 저장소 생성 (root 디렉터리가 없으면 생성)
func NewStore(root, urlPrefix string, scheduler cleanup.Scheduler) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	log.Info().Msgf("📁 Uploads directory: %s", abs)
	return &Store{
		root:      abs,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		scheduler: scheduler,
	}, nil
}

// Root - 저장소 루트 경로
func (s *Store) Root() string { return s.root }

// Save - 새 이름으로 바이트 기록 (기존 파일 덮어쓰지 않음)
func (s *Store) Save(data []byte, prefix, ext string) (*Artifact, error) {
	f, art, err := s.create(prefix, ext)
	if err != nil {
		return nil, err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		s.Remove(art.Path)
		return nil, fmt.Errorf("write %s: %w", art.Name, err)
	}
	if err := f.Close(); err != nil {
		s.Remove(art.Path)
		return nil, fmt.Errorf("close %s: %w", art.Name, err)
	}

	log.Debug().Str("file", art.Name).Int("bytes", len(data)).Msg("💾 [Storage] Saved artifact")
	return art, nil
}

// SaveStream - reader 내용을 limit 바이트까지 저장, 초과 시 ErrTooLarge
func (s *Store) SaveStream(r io.Reader, limit int64, prefix, ext string) (*Artifact, error) {
	f, art, err := s.create(prefix, ext)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.Remove(art.Path)
		return nil, fmt.Errorf("write %s: %w", art.Name, err)
	}
	if n > limit {
		s.Remove(art.Path)
		return nil, ErrTooLarge
	}

	log.Debug().Str("file", art.Name).Int64("bytes", n).Msg("💾 [Storage] Saved upload")
	return art, nil
}

// ScheduleDelete - after 이후 삭제 예약 (응답 경로에서 기다리지 않음)
func (s *Store) ScheduleDelete(path string, after time.Duration) {
	if !s.contains(path) {
		log.Warn().Str("path", path).Msg("⚠️  [Storage] Refusing to schedule deletion outside upload dir")
		return
	}
	s.scheduler.Schedule(path, after)
}

// Remove - 즉시 삭제, 실패는 로그만 남김
func (s *Store) Remove(path string) {
	if !s.contains(path) {
		log.Warn().Str("path", path).Msg("⚠️  [Storage] Refusing to delete outside upload dir")
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("⚠️  [Storage] Failed to delete temp file")
	}
}

func (s *Store) create(prefix, ext string) (*os.File, *Artifact, error) {
	name := fmt.Sprintf("%s-%s%s", sanitizePrefix(prefix), uuid.NewString(), SanitizeExt(ext))
	path := filepath.Join(s.root, name)

	// O_EXCL: 같은 이름이 있으면 실패
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", name, err)
	}

	return f, &Artifact{
		Name: name,
		Path: path,
		URL:  s.urlPrefix + "/" + name,
	}, nil
}

func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// SanitizeExt - 확장자를 ".[a-z0-9]" 형태로 정리 (못 쓰면 빈 문자열)
func SanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

func sanitizePrefix(prefix string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(prefix) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
