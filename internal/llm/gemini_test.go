package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiSchemaConversion(t *testing.T) {
	def := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"reward_type": {Type: jsonschema.String, Enum: []string{"heal", "max_health_increase"}},
			"suggested_actions": {
				Type:  jsonschema.Array,
				Items: &jsonschema.Definition{Type: jsonschema.String},
			},
			"confidence": {Type: jsonschema.Number},
			"consumed":   {Type: jsonschema.Boolean},
			"amount":     {Type: jsonschema.Integer},
		},
		Required: []string{"reward_type"},
	}

	s := geminiSchema(def)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"reward_type"}, s.Required)

	reward := s.Properties["reward_type"]
	require.NotNil(t, reward)
	assert.Equal(t, genai.TypeString, reward.Type)
	assert.Equal(t, "enum", reward.Format)
	assert.Equal(t, []string{"heal", "max_health_increase"}, reward.Enum)

	actions := s.Properties["suggested_actions"]
	require.NotNil(t, actions.Items)
	assert.Equal(t, genai.TypeArray, actions.Type)
	assert.Equal(t, genai.TypeString, actions.Items.Type)

	assert.Equal(t, genai.TypeNumber, s.Properties["confidence"].Type)
	assert.Equal(t, genai.TypeBoolean, s.Properties["consumed"].Type)
	assert.Equal(t, genai.TypeInteger, s.Properties["amount"].Type)
}

func TestNewProviderRejectsUnknownKind(t *testing.T) {
	_, err := NewProvider(t.Context(), ProviderConfig{Kind: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewProviderFillsDefaultModel(t *testing.T) {
	p, err := NewProvider(t.Context(), ProviderConfig{Kind: ProviderOpenAI, BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModels[ProviderOpenAI], p.(*OpenAIProvider).model)

	p, err = NewProvider(t.Context(), ProviderConfig{Kind: ProviderOllama, BaseURL: "http://localhost:11434/v1"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}
