package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/llm/llmtest"
)

type check struct {
	Attribute       string `json:"attribute" validate:"oneof=strength dexterity"`
	DifficultyClass int    `json:"difficulty_class" validate:"min=3,max=19"`
}

var checkSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"attribute":        {Type: jsonschema.String, Enum: []string{"strength", "dexterity"}},
		"difficulty_class": {Type: jsonschema.Integer},
	},
	Required: []string{"attribute", "difficulty_class"},
}

func newClient(t *testing.T, p llm.Provider) *llm.Client {
	t.Helper()
	return llm.NewClient(p,
		llm.WithRetryDelay(0),
		llm.WithLogger(zaptest.NewLogger(t)))
}

func request(op string) llm.Request {
	return llm.NewRequest(op, "system prompt", "user prompt", checkSchema)
}

func TestCompleteDecodesValidResponse(t *testing.T) {
	p := llmtest.New().Push("check_ok", `{"attribute":"strength","difficulty_class":12}`)
	got, err := llm.Complete[check](context.Background(), newClient(t, p), request("check_ok"))
	require.NoError(t, err)
	assert.Equal(t, "strength", got.Attribute)
	assert.Equal(t, 12, got.DifficultyClass)
	assert.Equal(t, 1, p.Calls("check_ok"))
}

func TestCompleteStripsFencesAndChatter(t *testing.T) {
	p := llmtest.New().Push("check_fenced", "```json\nSure! {\"attribute\":\"dexterity\",\"difficulty_class\":5}\n```")
	got, err := llm.Complete[check](context.Background(), newClient(t, p), request("check_fenced"))
	require.NoError(t, err)
	assert.Equal(t, "dexterity", got.Attribute)
}

func TestCompleteRetriesInvalidOutput(t *testing.T) {
	p := llmtest.New().
		Push("check_retry", "not json").
		Push("check_retry", `{"attribute":"wisdom","difficulty_class":12}`).
		Push("check_retry", `{"attribute":"strength","difficulty_class":7}`)

	got, err := llm.Complete[check](context.Background(), newClient(t, p), request("check_retry"))
	require.NoError(t, err)
	assert.Equal(t, 7, got.DifficultyClass)
	assert.Equal(t, 3, p.Calls("check_retry"))
	assert.Equal(t, 2.0, testutil.ToFloat64(llm.CompletionCounter("check_retry", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(llm.CompletionCounter("check_retry", "success")))
}

func TestCompleteExhaustsRetries(t *testing.T) {
	p := llmtest.New()
	for range 3 {
		p.Push("check_exhaust", `{"attribute":"strength","difficulty_class":40}`)
	}
	_, err := llm.Complete[check](context.Background(), newClient(t, p), request("check_exhaust"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
	assert.ErrorIs(t, err, llm.ErrInvalidResponse)
	assert.Equal(t, 3, p.Calls("check_exhaust"))
}

func TestCompleteHonoursMaxAttempts(t *testing.T) {
	p := llmtest.New().Push("check_one", "{}").Push("check_one", "{}")
	c := llm.NewClient(p, llm.WithMaxAttempts(1), llm.WithRetryDelay(0))
	_, err := llm.Complete[check](context.Background(), c, request("check_one"))
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
	assert.Equal(t, 1, p.Calls("check_one"))
}

func TestCompleteDoesNotRetryProviderErrors(t *testing.T) {
	boom := errors.New("connection refused")
	p := llmtest.New().
		PushError("check_down", boom).
		Push("check_down", `{"attribute":"strength","difficulty_class":7}`)

	_, err := llm.Complete[check](context.Background(), newClient(t, p), request("check_down"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, llm.ErrRetriesExhausted)
	assert.Equal(t, 1, p.Calls("check_down"))
}

func TestCompleteRejectsMissingRequiredKey(t *testing.T) {
	// difficulty_class would decode to a valid zero value without the key check.
	type loose struct {
		Attribute       string `json:"attribute"`
		DifficultyClass int    `json:"difficulty_class"`
	}
	p := llmtest.New()
	for range 3 {
		p.Push("check_missing", `{"attribute":"strength"}`)
	}
	_, err := llm.Complete[loose](context.Background(), newClient(t, p), request("check_missing"))
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)

	p.Push("check_null", `{"attribute":"strength","difficulty_class":null}`)
	c := llm.NewClient(p, llm.WithMaxAttempts(1))
	_, err = llm.Complete[loose](context.Background(), c, request("check_null"))
	assert.ErrorIs(t, err, llm.ErrInvalidResponse)
}

func TestCompleteRejectsMalformedRequest(t *testing.T) {
	p := llmtest.New()
	c := newClient(t, p)

	_, err := llm.Complete[check](context.Background(), c, llm.Request{Operation: "x"})
	assert.ErrorIs(t, err, llm.ErrBadRequest)

	_, err = llm.Complete[check](context.Background(), c, llm.NewRequest("", "s", "u", nil))
	assert.ErrorIs(t, err, llm.ErrBadRequest)
	assert.Empty(t, p.Requests())
}

func TestCompleteStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := llmtest.New().Push("check_cancel", `{"attribute":"strength","difficulty_class":7}`)
	_, err := llm.Complete[check](ctx, newClient(t, p), request("check_cancel"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestAccessors(t *testing.T) {
	req := llm.NewRequest("op", "sys", "usr", nil)
	assert.Equal(t, "sys", req.System())
	assert.Equal(t, "usr", req.User())
}
