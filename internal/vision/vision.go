// Package vision runs crop photos through an image analysis backend. Its
// results only ever enrich a verdict; failures are replaced by a placeholder.
package vision

import (
	"context"
	"errors"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

var ErrAnalysisUnavailable = errors.New("image analysis unavailable")

const (
	placeholderMessage    = "Failed to analyze crop health image."
	placeholderSuggestion = "Please try again or contact support if the issue persists."
)

// Analyzer inspects a crop image and reports its health.
type Analyzer interface {
	Analyze(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error) {
	return f(ctx, img)
}

// Disabled is used when no backend is configured.
type Disabled struct{}

func (Disabled) Analyze(context.Context, domain.ImageRequest) (domain.CropHealth, error) {
	return domain.CropHealth{}, ErrAnalysisUnavailable
}

// Placeholder is the result substituted for any failed analysis.
func Placeholder(imageURL string, at time.Time) domain.CropHealth {
	return domain.CropHealth{
		Status:     domain.StatusWarning,
		Message:    placeholderMessage,
		Suggestion: placeholderSuggestion,
		ImageURL:   imageURL,
		AnalyzedAt: at,
	}
}

// AnalyzeOrPlaceholder calls a with a deadline of timeout (if positive) and
// falls back to Placeholder on error. The returned error is the underlying
// failure, for logging and metrics only.
func AnalyzeOrPlaceholder(ctx context.Context, a Analyzer, img domain.ImageRequest, timeout time.Duration) (domain.CropHealth, error) {
	if a == nil {
		return Placeholder(img.ImageURL, time.Now().UTC()), ErrAnalysisUnavailable
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		health domain.CropHealth
		err    error
	}
	done := make(chan result, 1)
	go func() {
		h, err := a.Analyze(ctx, img)
		done <- result{h, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Placeholder(img.ImageURL, time.Now().UTC()), r.err
		}
		if r.health.ImageURL == "" {
			r.health.ImageURL = img.ImageURL
		}
		if r.health.AnalyzedAt.IsZero() {
			r.health.AnalyzedAt = time.Now().UTC()
		}
		return r.health, nil
	case <-ctx.Done():
		return Placeholder(img.ImageURL, time.Now().UTC()), ctx.Err()
	}
}
