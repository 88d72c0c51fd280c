package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

var analyzedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestInterpret_Healthy(t *testing.T) {
	h := Interpret("The leaves look green and vigorous. Growth is uniform.", "https://img/1.jpg", analyzedAt)

	assert.Equal(t, domain.StatusNormal, h.Status)
	assert.Equal(t, "No issues detected in your crops.", h.Message)
	assert.Equal(t, "Continue with your current management practices.", h.Suggestion)
	assert.Equal(t, 0.9, h.ConfidenceScore)
	assert.Empty(t, h.DetectedIssues)
}

func TestInterpret_Disease(t *testing.T) {
	text := "Overview of the field. The spots point to an early fungal disease on lower leaves. You should remove affected leaves and apply fungicide!"

	h := Interpret(text, "https://img/1.jpg", analyzedAt)

	assert.Equal(t, domain.StatusWarning, h.Status)
	assert.Equal(t, "The spots point to an early fungal disease on lower leaves.", h.Message)
	assert.Equal(t, "You should remove affected leaves and apply fungicide.", h.Suggestion)
	assert.Equal(t, []string{h.Message}, h.DetectedIssues)
	assert.Equal(t, 0.8, h.ConfidenceScore)
}

func TestInterpret_Severe(t *testing.T) {
	h := Interpret("Severe pest damage is visible. Treatment can treat the infestation.", "u", analyzedAt)

	assert.Equal(t, domain.StatusCritical, h.Status)
	assert.Equal(t, "Severe pest damage is visible.", h.Message)
	assert.Equal(t, "Treatment can treat the infestation.", h.Suggestion)
}

func TestAnalyzeOrPlaceholder(t *testing.T) {
	img := domain.ImageRequest{ImageURL: "https://img/1.jpg"}

	failing := AnalyzerFunc(func(context.Context, domain.ImageRequest) (domain.CropHealth, error) {
		return domain.CropHealth{}, errors.New("boom")
	})
	h, err := AnalyzeOrPlaceholder(context.Background(), failing, img, time.Second)
	require.Error(t, err)
	assert.Equal(t, domain.StatusWarning, h.Status)
	assert.Equal(t, "Failed to analyze crop health image.", h.Message)
	assert.Equal(t, "Please try again or contact support if the issue persists.", h.Suggestion)
	assert.Equal(t, img.ImageURL, h.ImageURL)

	slow := AnalyzerFunc(func(ctx context.Context, _ domain.ImageRequest) (domain.CropHealth, error) {
		<-ctx.Done()
		return domain.CropHealth{}, ctx.Err()
	})
	h, err = AnalyzeOrPlaceholder(context.Background(), slow, img, 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Failed to analyze crop health image.", h.Message)

	h, err = AnalyzeOrPlaceholder(context.Background(), Disabled{}, img, 0)
	require.ErrorIs(t, err, ErrAnalysisUnavailable)
	assert.Equal(t, domain.StatusWarning, h.Status)

	ok := AnalyzerFunc(func(context.Context, domain.ImageRequest) (domain.CropHealth, error) {
		return domain.CropHealth{Status: domain.StatusNormal, Message: "fine"}, nil
	})
	h, err = AnalyzeOrPlaceholder(context.Background(), ok, img, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fine", h.Message)
	assert.Equal(t, img.ImageURL, h.ImageURL)
	assert.False(t, h.AnalyzedAt.IsZero())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	failing := AnalyzerFunc(func(context.Context, domain.ImageRequest) (domain.CropHealth, error) {
		calls++
		return domain.CropHealth{}, errors.New("backend down")
	})
	b := NewBreaker(failing, BreakerSettings{Name: "test", Failures: 2, Open: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Analyze(context.Background(), domain.ImageRequest{})
		require.Error(t, err)
	}
	_, err := b.Analyze(context.Background(), domain.ImageRequest{})

	require.ErrorIs(t, err, ErrAnalysisUnavailable)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", b.State())
}

func TestGeminiAnalyzer(t *testing.T) {
	var gotPrompt string
	var gotData string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/leaf.jpg":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("pixels"))
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
			assert.Equal(t, "secret", r.URL.Query().Get("key"))
			var req geminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotPrompt = req.Contents[0].Parts[0].Text
			gotData = req.Contents[0].Parts[1].InlineData.Data
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Signs of nitrogen deficiency on older leaves. We recommend a side-dress of urea."}]}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g, err := NewGeminiAnalyzer(GeminiConfig{BaseURL: srv.URL, APIKey: "secret", Model: "gemini-test", Timeout: 5 * time.Second})
	require.NoError(t, err)

	h, err := g.Analyze(context.Background(), domain.ImageRequest{ImageURL: srv.URL + "/leaf.jpg", CropType: "maize"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusWarning, h.Status)
	assert.Equal(t, "Signs of nitrogen deficiency on older leaves.", h.Message)
	assert.Equal(t, "We recommend a side-dress of urea.", h.Suggestion)
	assert.Contains(t, gotPrompt, "Disease: Late Blight")
	assert.Contains(t, gotPrompt, "image of their maize")
	assert.Equal(t, "cGl4ZWxz", gotData)
}

func TestNewGeminiAnalyzer_RequiresKey(t *testing.T) {
	_, err := NewGeminiAnalyzer(GeminiConfig{})
	assert.Error(t, err)
}
