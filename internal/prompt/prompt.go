// Package prompt holds one request per game operation: the system and user
// templates, the response schema, and the sampling settings that go with it.
package prompt

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/tatianab/dungeon-floor/internal/llm"
	"github.com/tatianab/dungeon-floor/internal/models"
)

//go:embed prompts/system/*.txt
//go:embed prompts/user/*.txt
var promptFS embed.FS

var (
	systemTemplates = template.Must(template.New("system").Option("missingkey=error").ParseFS(promptFS, "prompts/system/*.txt"))
	userTemplates   = template.Must(template.New("user").Option("missingkey=error").ParseFS(promptFS, "prompts/user/*.txt"))
)

// Vars are the named placeholders of a template. Every placeholder a
// template uses must be present.
type Vars map[string]any

// Scene is the shared context most floor requests are rendered from.
type Scene struct {
	Theme       string
	Player      *models.Player
	History     *models.FloorHistory
	FloorType   models.FloorType
	Progression models.Progression
}

func (s Scene) vars() Vars {
	v := Vars{"theme": s.Theme}
	if s.Player != nil {
		v["player_description"] = s.Player.Description
		v["player_inventory"] = s.Player.InventoryPrompt()
	}
	if s.History != nil {
		v["history"] = s.History.Prompt()
	}
	if s.FloorType != "" {
		v["floor_type"] = string(s.FloorType)
	}
	if s.Progression.End > 0 {
		v["progression"] = s.Progression.String()
	}
	return v
}

func (v Vars) with(key string, value any) Vars {
	v[key] = value
	return v
}

// operation binds a name to its templates, schema and sampling settings.
// The user template is always named after the operation; system defaults to it.
type operation struct {
	name        string
	system      string
	schema      *jsonschema.Definition
	maxTokens   int
	temperature float32
}

func (op operation) request(vars Vars) (llm.Request, error) {
	system := op.system
	if system == "" {
		system = op.name
	}
	sys, err := render(systemTemplates, system, vars)
	if err != nil {
		return llm.Request{}, err
	}
	usr, err := render(userTemplates, op.name, vars)
	if err != nil {
		return llm.Request{}, err
	}
	req := llm.NewRequest(op.name, sys, usr, op.schema)
	req.MaxTokens = op.maxTokens
	req.Temperature = op.temperature
	return req, nil
}

func render(set *template.Template, name string, vars Vars) (string, error) {
	t := set.Lookup(name + ".txt")
	if t == nil {
		return "", fmt.Errorf("%w: no %s template %q", llm.ErrBadRequest, set.Name(), name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: render %s template %q: %v", llm.ErrBadRequest, set.Name(), name, err)
	}
	return buf.String(), nil
}

func send[T any](ctx context.Context, c *llm.Client, op operation, vars Vars) (*T, error) {
	req, err := op.request(vars)
	if err != nil {
		return nil, err
	}
	return llm.Complete[T](ctx, c, req)
}
