package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// GeminiAnalyzer asks a Gemini model to describe a crop photo and interprets
// the answer.
type GeminiAnalyzer struct {
	api    *resty.Client
	images *resty.Client
	apiKey string
	model  string
	now    func() time.Time
}

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGeminiAnalyzer(cfg GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	images := resty.New().SetTimeout(cfg.Timeout).SetRetryCount(1)

	return &GeminiAnalyzer{api: api, images: images, apiKey: cfg.APIKey, model: cfg.Model, now: time.Now}, nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error) {
	if img.ImageURL == "" {
		return domain.CropHealth{}, errors.New("gemini: image url is required")
	}

	imgResp, err := g.images.R().SetContext(ctx).Get(img.ImageURL)
	if err != nil {
		return domain.CropHealth{}, fmt.Errorf("fetch image: %w", err)
	}
	if imgResp.StatusCode() != http.StatusOK {
		return domain.CropHealth{}, fmt.Errorf("fetch image: %s", imgResp.Status())
	}
	mime := imgResp.Header().Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	req := geminiRequest{Contents: []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{Text: buildPrompt(img.CropType)},
			{InlineData: &geminiInlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(imgResp.Body())}},
		},
	}}}

	var out geminiResponse
	resp, err := g.api.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return domain.CropHealth{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		return domain.CropHealth{}, fmt.Errorf("gemini generate: %s", msg)
	}

	var text strings.Builder
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return domain.CropHealth{}, errors.New("gemini generate: empty response")
	}
	return Interpret(text.String(), img.ImageURL, g.now().UTC()), nil
}
