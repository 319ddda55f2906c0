package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/normalize"
	"github.com/hsaleh/chequeflow/internal/service"
)

type scriptedRecognizer struct {
	responses  []string
	errs       []error
	calls      int
	lastPrompt string
}

func (r *scriptedRecognizer) Recognize(_ context.Context, _ []byte, _ string, prompt string) (string, error) {
	idx := r.calls
	r.calls++
	r.lastPrompt = prompt
	if idx < len(r.errs) && r.errs[idx] != nil {
		return "", r.errs[idx]
	}
	if idx < len(r.responses) {
		return r.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

func fastAdapter(r service.Recognizer) *Adapter {
	return &Adapter{
		recognizer: r,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
}

func TestExtractRequiresInput(t *testing.T) {
	adapter := fastAdapter(&scriptedRecognizer{})

	_, err := adapter.Extract(context.Background(), nil, "   ", model.Candidate{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestExtractParsesResponse(t *testing.T) {
	rec := &scriptedRecognizer{
		responses: []string{`{"cheque_number": {"value": "4512", "confidence": 0.9}}`},
	}
	adapter := fastAdapter(rec)

	img := &normalize.NormalizedImage{MIMEType: "image/png", Data: []byte{1, 2, 3}}
	cand, err := adapter.Extract(context.Background(), img, "", model.Candidate{}, 2)
	require.NoError(t, err)
	assert.Equal(t, "4512", cand.ChequeNumber.Value)
	assert.Equal(t, 2, cand.ChequeNumber.Turn)
	assert.Equal(t, 1, rec.calls)
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	rec := &scriptedRecognizer{
		errs: []error{
			errors.New("503 service unavailable"),
			errors.New("request timeout"),
			nil,
		},
		responses: []string{"", "", `{"amount": {"value": 100, "confidence": 0.8}}`},
	}
	adapter := fastAdapter(rec)

	cand, err := adapter.Extract(context.Background(), nil, "read the amount", model.Candidate{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.calls)
	assert.True(t, cand.Amount.Set)
}

func TestExtractGivesUpAfterMaxAttempts(t *testing.T) {
	rec := &scriptedRecognizer{
		errs: []error{
			errors.New("503 service unavailable"),
			errors.New("503 service unavailable"),
			errors.New("503 service unavailable"),
		},
	}
	adapter := fastAdapter(rec)

	_, err := adapter.Extract(context.Background(), nil, "try again", model.Candidate{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Equal(t, 3, rec.calls)
}

func TestExtractDoesNotRetryCancellation(t *testing.T) {
	rec := &scriptedRecognizer{
		errs: []error{context.Canceled},
	}
	adapter := fastAdapter(rec)

	_, err := adapter.Extract(context.Background(), nil, "read it", model.Candidate{}, 1)
	require.Error(t, err)
	assert.Equal(t, 1, rec.calls)
}

func TestExtractDoesNotRetryUnparseableResponse(t *testing.T) {
	rec := &scriptedRecognizer{
		responses: []string{"I see a cheque but cannot read it"},
	}
	adapter := fastAdapter(rec)

	_, err := adapter.Extract(context.Background(), nil, "read it", model.Candidate{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Equal(t, 1, rec.calls)
}

func TestExtractPromptCarriesKnownFields(t *testing.T) {
	rec := &scriptedRecognizer{responses: []string{`{}`}}
	adapter := fastAdapter(rec)

	prior := model.Candidate{
		ChequeNumber: model.StringField{Value: "4512", Confidence: 0.9, Set: true},
	}
	_, err := adapter.Extract(context.Background(), nil, "the amount is wrong, look again", prior, 3)
	require.NoError(t, err)
	assert.Contains(t, rec.lastPrompt, "Already confirmed in earlier turns")
	assert.Contains(t, rec.lastPrompt, "cheque_number")
	assert.Contains(t, rec.lastPrompt, "the amount is wrong")
}
