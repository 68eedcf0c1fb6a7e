package tryon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"tryon-server/modules/common/apperr"
	"tryon-server/modules/common/gemini"
	"tryon-server/modules/common/storage"
	"tryon-server/modules/common/utils"
	"tryon-server/modules/progress"
)

// Generator - Gemini 이미지 생성 (gemini.Client 가 구현)
type Generator interface {
	Generate(ctx context.Context, payload gemini.Payload) (*gemini.Output, error)
}

// ArtifactStore - 임시 파일 저장소 (storage.Store 가 구현)
type ArtifactStore interface {
	Save(data []byte, prefix, ext string) (*storage.Artifact, error)
	ScheduleDelete(path string, after time.Duration)
}

// Service - 가상 피팅 생성 파이프라인
type Service struct {
	generator       Generator
	store           ArtifactStore
	resolver        ImageResolver
	reporter        progress.Reporter
	outputRetention time.Duration
}

// NewService - 의존성을 명시적으로 받아 서비스 생성
// generator 가 nil 이면 (API 키 없음) 매 요청이 ConfigurationError 로 실패한다.
func NewService(generator Generator, store ArtifactStore, resolver ImageResolver, reporter progress.Reporter, outputRetention time.Duration) *Service {
	return &Service{
		generator:       generator,
		store:           store,
		resolver:        resolver,
		reporter:        reporter,
		outputRetention: outputRetention,
	}
}

// GenerateOutfit - 사용자 사진과 선택 의류로 합성 이미지 생성 (재시도/캐시 없음)
func (s *Service) GenerateOutfit(ctx context.Context, photoPath string, items []ClothingItem) (*GenerationResult, error) {
	// 1. 설정 확인
	if s.generator == nil {
		return nil, apperr.New(apperr.KindConfiguration, gemini.MsgMissingAPIKey)
	}

	// 2. 입력 검증
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	log.Info().Msg("🎨 Generating virtual try-on with:")
	for _, item := range items {
		log.Info().Msgf("   %s: %s", item.Category, item.Name)
	}

	// 3. 사용자 사진 읽기 (MIME 은 확장자 기준, 모르면 image/jpeg)
	photoData, err := os.ReadFile(photoPath)
	if err != nil {
		return nil, fmt.Errorf("read user photo: %w", err)
	}
	photo := gemini.Attachment{MIMEType: utils.MimeTypeFromPath(photoPath), Data: photoData}

	// 4. 프롬프트 구성
	payload := BuildPrompt(photo, items, s.resolver)
	log.Info().Msgf("📝 Built prompt (%d chars, %d attachments)", len(payload.Instruction), len(payload.Attachments))
	s.report(ctx, progress.Event{Stage: progress.StagePromptBuilt})

	// 5. Gemini 호출
	s.report(ctx, progress.Event{Stage: progress.StageGenerating})
	out, err := s.generator.Generate(ctx, payload)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Image == nil {
		return nil, apperr.New(apperr.KindNoOutput, gemini.MsgNoOutput)
	}

	// 6. PNG 로 정규화 후 저장
	pngData, err := utils.ToPNG(out.Image.Data, out.Image.MIMEType)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNoOutput, gemini.MsgNoOutput, err)
	}

	artifact, err := s.store.Save(pngData, "generated", ".png")
	if err != nil {
		return nil, fmt.Errorf("save generated image: %w", err)
	}
	s.store.ScheduleDelete(artifact.Path, s.outputRetention)

	log.Info().Msgf("✅ Image generated successfully: %s", artifact.Path)
	return &GenerationResult{ImageURL: artifact.URL}, nil
}

// ValidateItems - 비어있지 않고 모든 카테고리가 알려진 값인지
func ValidateItems(items []ClothingItem) error {
	if len(items) == 0 {
		return apperr.Validation(MsgSelectItem)
	}
	for _, item := range items {
		if !item.Category.Valid() {
			return apperr.Validation(fmt.Sprintf("Invalid clothing category %q for item %q", item.Category, item.Name))
		}
	}
	return nil
}

func (s *Service) report(ctx context.Context, ev progress.Event) {
	if s.reporter != nil {
		s.reporter.Publish(ctx, ev)
	}
}
