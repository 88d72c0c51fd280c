package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

type lambdaInvoker interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaImageAnalyzer delegates crop image analysis to a Lambda function.
type LambdaImageAnalyzer struct {
	svc      lambdaInvoker
	function string
}

func NewLambdaImageAnalyzer(cfg aws.Config, function string) *LambdaImageAnalyzer {
	return &LambdaImageAnalyzer{svc: lambda.NewFromConfig(cfg), function: function}
}

// ImageAnalysisRequest is the payload sent to the analysis function.
type ImageAnalysisRequest struct {
	ImageURL string `json:"image_url"`
	CropType string `json:"crop_type,omitempty"`
	FarmID   string `json:"farm_id,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// ImageAnalysisResponse is what the analysis function returns.
type ImageAnalysisResponse struct {
	Status          domain.ParameterStatus `json:"status"`
	Message         string                 `json:"message"`
	Suggestion      string                 `json:"suggestion"`
	DetectedIssues  []string               `json:"detected_issues,omitempty"`
	ConfidenceScore float64                `json:"confidence_score,omitempty"`
}

func (a *LambdaImageAnalyzer) Analyze(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error) {
	payloadBytes, err := json.Marshal(ImageAnalysisRequest{
		ImageURL: img.ImageURL,
		CropType: img.CropType,
		FarmID:   img.FarmID,
		DeviceID: img.DeviceID,
	})
	if err != nil {
		return domain.CropHealth{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	result, err := a.svc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(a.function),
		Payload:        payloadBytes,
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
	})
	if err != nil {
		return domain.CropHealth{}, fmt.Errorf("failed to invoke Lambda: %w", err)
	}

	// Check for function error
	if result.FunctionError != nil {
		return domain.CropHealth{}, fmt.Errorf("Lambda function error: %s", *result.FunctionError)
	}

	var resp ImageAnalysisResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return domain.CropHealth{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	switch resp.Status {
	case domain.StatusNormal, domain.StatusWarning, domain.StatusCritical:
	default:
		return domain.CropHealth{}, fmt.Errorf("Lambda returned unknown status %q", resp.Status)
	}

	return domain.CropHealth{
		Status:          resp.Status,
		Message:         resp.Message,
		Suggestion:      resp.Suggestion,
		ImageURL:        img.ImageURL,
		DetectedIssues:  resp.DetectedIssues,
		ConfidenceScore: resp.ConfidenceScore,
		AnalyzedAt:      time.Now().UTC(),
	}, nil
}
