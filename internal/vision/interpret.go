package vision

import (
	"strings"
	"time"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

var (
	issueWords  = []string{"disease", "pest", "deficiency"}
	adviceWords = []string{"recommend", "suggest", "should"}
)

// Interpret turns free-text model output into a CropHealth verdict using
// keyword heuristics.
func Interpret(text, imageURL string, at time.Time) domain.CropHealth {
	lower := strings.ToLower(text)
	h := domain.CropHealth{
		Status:          domain.StatusNormal,
		Message:         "No issues detected in your crops.",
		Suggestion:      "Continue with your current management practices.",
		ImageURL:        imageURL,
		ConfidenceScore: 0.9,
		AnalyzedAt:      at,
	}
	if !containsAny(lower, issueWords) {
		return h
	}

	h.Status = domain.StatusWarning
	if strings.Contains(lower, "severe") {
		h.Status = domain.StatusCritical
	}
	h.ConfidenceScore = 0.8
	h.Message = "Potential issues detected in your crops."

	sentences := splitSentences(text)
	for _, s := range sentences {
		if containsAny(strings.ToLower(s), issueWords) {
			h.Message = s + "."
			break
		}
	}
	for _, s := range sentences {
		ls := strings.ToLower(s)
		if containsAny(ls, adviceWords) || (strings.Contains(ls, "can") && strings.Contains(ls, "treat")) {
			h.Suggestion = s + "."
			break
		}
	}
	h.DetectedIssues = []string{h.Message}
	return h
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
