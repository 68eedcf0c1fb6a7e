package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"tryon-server/modules/common/apperr"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	block    bool
	blockErr error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.block {
		<-ctx.Done()
		if f.blockErr != nil {
			return nil, f.blockErr
		}
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func response(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func imagePart(mime string, data string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: []byte(data)}}
}

var testPayload = Payload{
	Instruction: "dress the person",
	Attachments: []Attachment{
		{MIMEType: "image/jpeg", Data: []byte("photo")},
		{MIMEType: "image/webp", Data: []byte("shirt")},
	},
}

func TestGenerateSendsOrderedParts(t *testing.T) {
	fake := &fakeModels{resp: response(imagePart("image/png", "png-bytes"))}
	client := NewClientWithGenerator(fake, "gemini-2.5-flash-image", time.Minute)

	out, err := client.Generate(context.Background(), testPayload)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(out.Image.Data))

	require.Equal(t, "gemini-2.5-flash-image", fake.model)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 3)
	require.Equal(t, "dress the person", parts[0].Text)
	require.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	require.Equal(t, "photo", string(parts[1].InlineData.Data))
	require.Equal(t, "image/webp", parts[2].InlineData.MIMEType)
	require.ElementsMatch(t, []string{"TEXT", "IMAGE"}, fake.config.ResponseModalities)
}

func TestGenerateTakesFirstImageRegardlessOfOrder(t *testing.T) {
	fake := &fakeModels{resp: response(
		&genai.Part{Text: "Here is your outfit"},
		imagePart("image/png", "first"),
		&genai.Part{Text: "enjoy"},
		imagePart("image/png", "second"),
	)}
	client := NewClientWithGenerator(fake, "m", 0)

	out, err := client.Generate(context.Background(), testPayload)
	require.NoError(t, err)
	require.Equal(t, "first", string(out.Image.Data))
	require.Equal(t, []string{"Here is your outfit", "enjoy"}, out.Texts)
}

func TestGenerateTextOnlyIsNoOutput(t *testing.T) {
	fake := &fakeModels{resp: response(&genai.Part{Text: "I cannot do that"})}
	client := NewClientWithGenerator(fake, "m", 0)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindNoOutput))
	require.Equal(t, MsgNoOutput, err.Error())
}

func TestGenerateEmptyResponseIsNoOutput(t *testing.T) {
	client := NewClientWithGenerator(&fakeModels{resp: &genai.GenerateContentResponse{}}, "m", 0)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindNoOutput))
}

func TestGenerateSafetyFinishReason(t *testing.T) {
	resp := response(&genai.Part{Text: "blocked"})
	resp.Candidates[0].FinishReason = genai.FinishReason("IMAGE_SAFETY")
	client := NewClientWithGenerator(&fakeModels{resp: resp}, "m", 0)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindContentRejected))
}

func TestGeneratePromptBlocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
	}
	client := NewClientWithGenerator(&fakeModels{resp: resp}, "m", 0)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindContentRejected))
}

func TestGenerateProviderErrorIsClassified(t *testing.T) {
	fake := &fakeModels{err: errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED")}
	client := NewClientWithGenerator(fake, "m", 0)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindProviderUnavailable))
	require.Equal(t, MsgQuotaExceeded, err.Error())
}

func TestGenerateTimeoutIsProviderUnavailable(t *testing.T) {
	client := NewClientWithGenerator(&fakeModels{block: true}, "m", 20*time.Millisecond)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindProviderUnavailable))
	require.Equal(t, MsgTimeout, err.Error())
}

func TestGenerateTimeoutWithUnwrappedTransportError(t *testing.T) {
	fake := &fakeModels{block: true, blockErr: errors.New("net/http: request canceled")}
	client := NewClientWithGenerator(fake, "m", 20*time.Millisecond)

	_, err := client.Generate(context.Background(), testPayload)
	require.True(t, apperr.Is(err, apperr.KindProviderUnavailable))
	require.Equal(t, MsgTimeout, err.Error())
}

func TestGenerateCallerCancel(t *testing.T) {
	client := NewClientWithGenerator(&fakeModels{block: true}, "m", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, testPayload)
	require.True(t, apperr.Is(err, apperr.KindProviderUnavailable))
	require.Equal(t, MsgCancelled, err.Error())
}

func TestNewClientWithoutKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "m", time.Second)
	require.True(t, apperr.Is(err, apperr.KindConfiguration))
	require.Equal(t, MsgMissingAPIKey, err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
		msg  string
	}{
		{"api key marker", errors.New("API_KEY_INVALID"), apperr.KindConfiguration, MsgInvalidAPIKey},
		{"api key sentence", errors.New("Error 400, Message: API key not valid. Please pass a valid API key."), apperr.KindConfiguration, MsgInvalidAPIKey},
		{"safety", errors.New("candidate blocked: SAFETY"), apperr.KindContentRejected, MsgContentRejected},
		{"quota", errors.New("You exceeded your current quota"), apperr.KindProviderUnavailable, MsgQuotaExceeded},
		{"quota capitalized", errors.New("Quota exceeded for metric generate_content_requests"), apperr.KindProviderUnavailable, MsgQuotaExceeded},
		{"rate limit capitalized", errors.New("Rate limit reached, retry later"), apperr.KindProviderUnavailable, MsgQuotaExceeded},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), apperr.KindProviderUnavailable, MsgQuotaExceeded},
		{"model not found", errors.New("models/gemini-x is not found for API version v1beta"), apperr.KindConfiguration, MsgModelNotFound},
		{"unsupported", errors.New("image output is not supported by this model"), apperr.KindConfiguration, MsgModelNotFound},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), apperr.KindProviderUnavailable, MsgTimeout},
		{"api error 429", genai.APIError{Code: 429, Message: "slow down"}, apperr.KindProviderUnavailable, MsgQuotaExceeded},
		{"api error 403", genai.APIError{Code: 403, Message: "forbidden"}, apperr.KindConfiguration, MsgInvalidAPIKey},
		{"unknown", errors.New("backend exploded"), apperr.KindProvider, "backend exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.Equal(t, tt.kind, got.Kind)
			require.Equal(t, tt.msg, got.Message)
			require.Equal(t, tt.err, got.Err)
		})
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := apperr.New(apperr.KindNoOutput, "none")
	require.Same(t, orig, Classify(fmt.Errorf("wrap: %w", orig)))
	require.Nil(t, Classify(nil))
}
