package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"tryon-server/modules/common/apperr"
)

// 사용자에게 그대로 내려가는 메시지
const (
	MsgMissingAPIKey   = "Gemini API key is not configured. Please set GEMINI_API_KEY in your .env file."
	MsgInvalidAPIKey   = "Invalid API key. Please check your Gemini API configuration."
	MsgContentRejected = "Image could not be generated due to content safety filters. Please try a different photo."
	MsgQuotaExceeded   = "API quota exceeded. Please try again later."
	MsgTimeout         = "The AI service took too long to respond. Please try again later."
	MsgCancelled       = "The request was cancelled before the AI service responded."
	MsgModelNotFound   = "The AI model is not available. Please check your API configuration."
	MsgNoOutput        = "No image was generated. The AI model may not support this request or it was filtered."
	MsgGenericFailure  = "Failed to generate outfit. Please try again."
)

// rule - 에러 문자열에 marker 중 하나가 있으면 kind 로 분류
// fold 이면 대소문자 구분 없이 비교 (marker 는 소문자로 적는다)
type rule struct {
	kind    apperr.Kind
	message string
	markers []string
	fold    bool
}

// rules - 순서대로 검사 (먼저 맞는 규칙이 이김)
// 프로바이더 버전에 따라 바뀌는 휴리스틱이므로 여기서만 관리한다.
var rules = []rule{
	{apperr.KindConfiguration, MsgInvalidAPIKey, []string{"API_KEY", "apiKey", "API key not valid"}, false},
	{apperr.KindContentRejected, MsgContentRejected, []string{"SAFETY"}, false},
	{apperr.KindProviderUnavailable, MsgQuotaExceeded, []string{"RESOURCE_EXHAUSTED", "429"}, false},
	{apperr.KindProviderUnavailable, MsgQuotaExceeded, []string{"quota", "rate limit"}, true},
	{apperr.KindConfiguration, MsgModelNotFound, []string{"not found", "not supported"}, false},
}

// Classify - 프로바이더 에러를 정규화된 apperr.Error 로 변환
func Classify(err error) *apperr.Error {
	if err == nil {
		return nil
	}

	var already *apperr.Error
	if errors.As(err, &already) {
		return already
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindProviderUnavailable, MsgTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return apperr.Wrap(apperr.KindConfiguration, MsgInvalidAPIKey, err)
		case 429:
			return apperr.Wrap(apperr.KindProviderUnavailable, MsgQuotaExceeded, err)
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, r := range rules {
		haystack := msg
		if r.fold {
			haystack = lower
		}
		for _, marker := range r.markers {
			if strings.Contains(haystack, marker) {
				return apperr.Wrap(r.kind, r.message, err)
			}
		}
	}

	if strings.TrimSpace(msg) == "" {
		msg = MsgGenericFailure
	}
	return apperr.Wrap(apperr.KindProvider, msg, err)
}

// blockReason - 프롬프트 차단/후보 종료 사유 중 안전 관련 값
func blockReason(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return string(result.PromptFeedback.BlockReason)
	}
	for _, candidate := range result.Candidates {
		if candidate == nil {
			continue
		}
		reason := string(candidate.FinishReason)
		if strings.Contains(reason, "SAFETY") || reason == "PROHIBITED_CONTENT" || reason == "BLOCKLIST" {
			return reason
		}
	}
	return ""
}
