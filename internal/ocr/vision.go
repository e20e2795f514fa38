package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"pdf-ocr-service/internal/config"
	"pdf-ocr-service/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const visionPrompt = "Extract the text from this image. Return only the text, with no commentary."

// VisionBackend is the heavy generative backend: a vision-capable chat model
// prompted to transcribe each page image. It returns a single text blob per
// page with no bounding-box structure, so the detection list degenerates to
// one entry holding the text.
type VisionBackend struct {
	client *openai.Client
	model  string
}

// NewVisionBackend builds the OpenAI-compatible client. BaseURL may point at
// a local inference server; only one of APIKey/BaseURL is strictly required.
func NewVisionBackend(cfg config.VisionConfig) (*VisionBackend, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("vision backend requires OPENAI_API_KEY or OPENAI_BASE_URL")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &VisionBackend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (b *VisionBackend) Name() string { return BackendVision }

// Recognize sends the page image to the model and returns its transcription.
func (b *VisionBackend) Recognize(ctx context.Context, image []byte) (models.PageResult, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return models.PageResult{}, fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.PageResult{}, errors.New("vision completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return models.PageResult{
		Text:       text,
		Detections: []models.Detection{{Text: text}},
	}, nil
}
