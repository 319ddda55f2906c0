// Package extract sends normalized images and caller instructions to the
// external recognition capability and validates its untyped responses.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/normalize"
	"github.com/hsaleh/chequeflow/internal/service"
)

// Adapter orchestrates recognition calls with bounded retries.
type Adapter struct {
	recognizer service.Recognizer
	retryOpts  service.RetryOptions
}

// NewAdapter creates an extraction adapter around a recognizer.
func NewAdapter(recognizer service.Recognizer) *Adapter {
	return &Adapter{
		recognizer: recognizer,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Extract invokes the recognition capability and returns the validated
// candidate fields, tagged with the producing turn. At least one of image or
// instruction must be present. Transient recognition failures are retried
// with backoff; an unparseable response is not.
func (a *Adapter) Extract(ctx context.Context, img *normalize.NormalizedImage, instruction string, prior model.Candidate, turn int) (model.Candidate, error) {
	if img == nil && strings.TrimSpace(instruction) == "" {
		return model.Candidate{}, common.NewUserError(
			"an image or an instruction is required", common.ErrValidation)
	}
	if a.recognizer == nil {
		return model.Candidate{}, common.ErrRecognizerConfig
	}

	prompt := buildPrompt(instruction, prior)

	var imageData []byte
	var mimeType string
	if img != nil {
		imageData = img.Data
		mimeType = img.MIMEType
	}

	var raw string
	err := common.WithRetry(ctx, func() error {
		text, callErr := a.recognizer.Recognize(ctx, imageData, mimeType, prompt)
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: retryable(callErr)}
		}
		raw = text
		return nil
	}, a.retryOpts)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}

	cand, err := parseCandidate(raw, turn)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}
	return cand, nil
}

// retryable classifies a recognizer failure. Timeouts and server-side errors
// are transient; a cancelled caller context is not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "deadline", "unavailable", "overloaded", "500", "502", "503", "429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
