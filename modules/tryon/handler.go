package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"tryon-server/modules/common/apperr"
	"tryon-server/modules/common/gemini"
	"tryon-server/modules/common/storage"
	"tryon-server/modules/common/utils"
	"tryon-server/modules/progress"
)

// 클라이언트에게 내려가는 검증 메시지
const (
	MsgUploadPhoto      = "Please upload your photo"
	MsgFileTooLargeFmt  = "File too large. Maximum size is %s."
	MsgInvalidItems     = "Invalid clothing items data"
	MsgSelectItem       = "Please select at least one clothing item"
	MsgInvalidFieldName = "Invalid file field name."
	MsgInvalidFileType  = "Invalid file type. Only JPEG, PNG, and WebP are allowed."
	MsgInvalidForm      = "Invalid multipart form data"
	MsgNotFound         = "Endpoint not found"
)

const (
	photoField   = "userPhoto"
	itemsField   = "clothingItems"
	sessionField = "sessionId"

	// 텍스트 필드 최대 크기 (clothingItems JSON)
	maxFieldBytes = 1 << 20
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// UploadStore - 업로드 저장/삭제 (storage.Store 가 구현)
type UploadStore interface {
	SaveStream(r io.Reader, limit int64, prefix, ext string) (*storage.Artifact, error)
	ScheduleDelete(path string, after time.Duration)
	Remove(path string)
	Root() string
}

// Handler - 가상 피팅 HTTP 핸들러
type Handler struct {
	service        *Service
	store          UploadStore
	reporter       progress.Reporter
	maxUploadBytes int64
	inputRetention time.Duration
	tooLargeMsg    string
}

// NewHandler - 핸들러 생성
func NewHandler(service *Service, store UploadStore, reporter progress.Reporter, maxUploadBytes int64, inputRetention time.Duration) *Handler {
	return &Handler{
		service:        service,
		store:          store,
		reporter:       reporter,
		maxUploadBytes: maxUploadBytes,
		inputRetention: inputRetention,
		tooLargeMsg:    FileTooLargeMessage(maxUploadBytes),
	}
}

// FileTooLargeMessage - 설정된 업로드 한도로 만든 안내 문구 (10485760 → "10MB")
func FileTooLargeMessage(limit int64) string {
	var size string
	switch {
	case limit >= 1<<20 && limit%(1<<20) == 0:
		size = fmt.Sprintf("%dMB", limit>>20)
	case limit >= 1<<10 && limit%(1<<10) == 0:
		size = fmt.Sprintf("%dKB", limit>>10)
	default:
		size = fmt.Sprintf("%d bytes", limit)
	}
	return fmt.Sprintf(MsgFileTooLargeFmt, size)
}

// RegisterRoutes - API / 업로드 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate-outfit", h.GenerateOutfit).Methods(http.MethodPost)
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
	r.PathPrefix("/uploads/").HandlerFunc(h.ServeUpload).Methods(http.MethodGet, http.MethodHead)

	// 등록된 경로에 다른 메서드로 오면 mux 기본 405(text) 대신 JSON 404
	r.MethodNotAllowedHandler = http.HandlerFunc(NotFound)
}

// uploadForm - 파싱된 multipart 입력
type uploadForm struct {
	photo     *storage.Artifact
	items     string
	hasItems  bool
	sessionID string
}

// GenerateOutfit - POST /api/generate-outfit
func (h *Handler) GenerateOutfit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+maxFieldBytes)

	form, err := h.readForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// 사진 확인
	if form.photo == nil {
		writeJSON(w, http.StatusBadRequest, GenerateOutfitResponse{Message: MsgUploadPhoto})
		return
	}

	// 의류 목록 파싱
	items, err := parseItems(form.items, form.hasItems)
	if err == nil {
		err = ValidateItems(items)
	}
	if err != nil {
		h.store.Remove(form.photo.Path)
		writeError(w, err)
		return
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name+" ("+string(item.Category)+")")
	}
	logger := log.Ctx(r.Context())
	logger.Info().Strs("clothingItems", names).Str("userPhotoPath", form.photo.Path).Msg("Generating outfit")

	ctx := progress.WithSession(r.Context(), form.sessionID)
	h.report(ctx, progress.Event{Stage: progress.StageReceived})

	result, err := h.service.GenerateOutfit(ctx, form.photo.Path, items)

	// 성공/실패 모두 업로드 사진 삭제 예약
	h.store.ScheduleDelete(form.photo.Path, h.inputRetention)

	if err != nil {
		logger.Error().Err(err).Str("kind", string(apperr.KindOf(err))).Msg("❌ Generation error")
		h.report(ctx, progress.Event{Stage: progress.StageFailed, Message: err.Error()})
		writeError(w, err)
		return
	}

	h.report(ctx, progress.Event{Stage: progress.StageCompleted, GeneratedImageURL: result.ImageURL})
	writeJSON(w, http.StatusOK, GenerateOutfitResponse{
		Success:           true,
		GeneratedImageURL: result.ImageURL,
	})
}

// readForm - multipart 를 스트리밍으로 읽으면서 사진은 바로 저장
// 에러가 나면 이미 저장한 사진은 지운다.
func (h *Handler) readForm(r *http.Request) (form *uploadForm, err error) {
	form = &uploadForm{}

	mr, err := r.MultipartReader()
	if err != nil {
		// multipart 가 아니면 사진 없음으로 처리
		return form, nil
	}

	defer func() {
		if err != nil && form.photo != nil {
			h.store.Remove(form.photo.Path)
			form.photo = nil
		}
	}()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			if isTooLarge(err) {
				return form, apperr.Validation(h.tooLargeMsg)
			}
			return form, apperr.Wrap(apperr.KindValidation, MsgInvalidForm, err)
		}

		if part.FileName() != "" {
			if err := h.savePhoto(form, part.FormName(), part.FileName(), part.Header.Get("Content-Type"), part); err != nil {
				part.Close()
				return form, err
			}
			part.Close()
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		part.Close()
		if err != nil {
			if isTooLarge(err) {
				return form, apperr.Validation(h.tooLargeMsg)
			}
			return form, apperr.Wrap(apperr.KindValidation, MsgInvalidForm, err)
		}
		if len(value) > maxFieldBytes {
			return form, apperr.Validation(MsgInvalidItems)
		}

		switch part.FormName() {
		case itemsField:
			form.items = string(value)
			form.hasItems = true
		case sessionField:
			form.sessionID = strings.TrimSpace(string(value))
		}
	}
}

func (h *Handler) savePhoto(form *uploadForm, field, filename, contentType string, body io.Reader) error {
	// 사진 필드는 정확히 하나
	if field != photoField || form.photo != nil {
		return apperr.Validation(MsgInvalidFieldName)
	}

	mime := strings.ToLower(strings.TrimSpace(contentType))
	if !allowedPhotoTypes[mime] {
		return apperr.Validation(MsgInvalidFileType)
	}

	// 클라이언트 파일명은 확장자만 참고 (알려진 확장자가 아니면 MIME 기준)
	ext := strings.ToLower(filepath.Ext(filename))
	if !utils.IsRecognizedExt(ext) {
		ext = utils.ExtForMimeType(mime)
	}

	art, err := h.store.SaveStream(body, h.maxUploadBytes, "user-photo", ext)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || isTooLarge(err) {
			return apperr.Validation(h.tooLargeMsg)
		}
		return err
	}

	form.photo = art
	return nil
}

// parseItems - JSON 파싱 실패와 빈 목록을 구분
func parseItems(raw string, present bool) ([]ClothingItem, error) {
	if !present {
		return nil, apperr.Validation(MsgInvalidItems)
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, apperr.Validation(MsgInvalidItems)
	}

	list, ok := generic.([]any)
	if !ok || len(list) == 0 {
		return nil, apperr.Validation(MsgSelectItem)
	}

	var items []ClothingItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, apperr.Validation(MsgInvalidItems)
	}
	return items, nil
}

// Health - GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

// ServeUpload - GET /uploads/<name> (보관 기간 동안만 존재)
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := path.Base(path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/uploads/")))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		NotFound(w, r)
		return
	}

	full := filepath.Join(h.store.Root(), name)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		NotFound(w, r)
		return
	}

	http.ServeFile(w, r, full)
}

// NotFound - JSON 404
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, GenerateOutfitResponse{Message: MsgNotFound})
}

func (h *Handler) report(ctx context.Context, ev progress.Event) {
	if h.reporter != nil {
		h.reporter.Publish(ctx, ev)
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// writeError - 에러를 {success:false, message} 로 변환
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(apperr.KindOf(err))

	// 내부 에러(파일 I/O 등)는 경로가 노출되지 않도록 일반 메시지
	message := gemini.MsgGenericFailure
	var appErr *apperr.Error
	if errors.As(err, &appErr) && strings.TrimSpace(appErr.Error()) != "" {
		message = appErr.Error()
	}
	writeJSON(w, status, GenerateOutfitResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}
