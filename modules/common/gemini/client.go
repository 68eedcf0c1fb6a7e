package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"tryon-server/modules/common/apperr"
)

// ContentGenerator - genai Models 의 GenerateContent 시그니처 (테스트에서 교체)
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Attachment - 인라인 이미지 한 장
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Payload - 지시문 + 순서가 있는 이미지 첨부
type Payload struct {
	Instruction string
	Attachments []Attachment
}

// Output - 응답에서 뽑은 텍스트들과 첫 번째 이미지
type Output struct {
	Texts []string
	Image *Attachment
}

// Client - Gemini 이미지 생성 클라이언트 (재시도 없음)
type Client struct {
	models  ContentGenerator
	model   string
	timeout time.Duration
}

// NewClient - API 키로 genai 클라이언트를 만들어 감싼다
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, apperr.New(apperr.KindConfiguration, MsgMissingAPIKey)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}

	log.Info().Msgf("✅ [Gemini] Client initialized (model: %s)", model)
	return NewClientWithGenerator(genaiClient.Models, model, timeout), nil
}

// NewClientWithGenerator - 임의의 ContentGenerator 로 클라이언트 생성
func NewClientWithGenerator(models ContentGenerator, model string, timeout time.Duration) *Client {
	return &Client{models: models, model: model, timeout: timeout}
}

// Generate - payload 를 Gemini 에 보내고 첫 번째 인라인 이미지를 반환
// 실패는 항상 *apperr.Error 로 정규화된다.
func (c *Client) Generate(ctx context.Context, payload Payload) (*Output, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// 순서: 지시문 → 사용자 사진 → 의류 이미지들
	parts := make([]*genai.Part, 0, len(payload.Attachments)+1)
	parts = append(parts, genai.NewPartFromText(payload.Instruction))
	for _, att := range payload.Attachments {
		parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
	}

	log.Info().Msgf("📤 [Gemini] Sending request with %d parts (model: %s)", len(parts), c.model)
	start := time.Now()

	result, err := c.models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	)
	if err != nil {
		// 호출자가 끊은 경우는 타임아웃과 구분
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			log.Error().Err(err).Dur("timeout", c.timeout).Msg("⏱️  [Gemini] API call timed out")
			return nil, apperr.Wrap(apperr.KindProviderUnavailable, MsgTimeout, err)
		case ctx.Err() != nil:
			return nil, apperr.Wrap(apperr.KindProviderUnavailable, MsgCancelled, err)
		}
		classified := Classify(err)
		log.Error().Err(err).Str("kind", string(classified.Kind)).Msg("❌ [Gemini] API call failed")
		return nil, classified
	}

	out := extract(result)
	for _, text := range out.Texts {
		log.Info().Msgf("💬 [Gemini] Text response: %s", text)
	}

	if out.Image == nil {
		if reason := blockReason(result); reason != "" {
			log.Warn().Str("reason", reason).Msg("🚫 [Gemini] Response blocked by safety filters")
			return nil, apperr.New(apperr.KindContentRejected, MsgContentRejected)
		}
		log.Warn().Int("texts", len(out.Texts)).Msg("⚠️  [Gemini] No image part in response")
		return nil, apperr.New(apperr.KindNoOutput, MsgNoOutput)
	}

	log.Info().Msgf("✅ [Gemini] Received image: %d bytes (%s) in %s", len(out.Image.Data), out.Image.MIMEType, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// extract - 모든 후보/파트를 훑어 텍스트는 모으고 첫 이미지만 취함
func extract(result *genai.GenerateContentResponse) *Output {
	out := &Output{}
	if result == nil {
		return out
	}

	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				if out.Image == nil {
					mime := part.InlineData.MIMEType
					if mime == "" {
						mime = "image/png"
					}
					out.Image = &Attachment{MIMEType: mime, Data: part.InlineData.Data}
				}
				continue
			}
			if part.Text != "" {
				out.Texts = append(out.Texts, part.Text)
			}
		}
	}

	return out
}
