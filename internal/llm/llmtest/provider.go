// Package llmtest provides a scripted llm.Provider for deterministic tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tatianab/dungeon-floor/internal/llm"
)

type reply struct {
	text string
	err  error
}

// Provider answers each operation from a FIFO queue of scripted replies.
// An operation with nothing queued fails the call.
type Provider struct {
	mu       sync.Mutex
	queues   map[string][]reply
	requests []llm.Request
}

func New() *Provider {
	return &Provider{queues: make(map[string][]reply)}
}

func (p *Provider) Name() string { return "scripted" }

// Push queues a raw text reply for operation.
func (p *Provider) Push(operation, text string) *Provider {
	return p.push(operation, reply{text: text})
}

// PushJSON queues v encoded as JSON. It panics if v cannot be encoded.
func (p *Provider) PushJSON(operation string, v any) *Provider {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("llmtest: encode %s reply: %v", operation, err))
	}
	return p.push(operation, reply{text: string(b)})
}

// PushError queues a backend failure for operation.
func (p *Provider) PushError(operation string, err error) *Provider {
	return p.push(operation, reply{err: err})
}

func (p *Provider) push(operation string, r reply) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[operation] = append(p.queues[operation], r)
	return p
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	q := p.queues[req.Operation]
	if len(q) == 0 {
		return "", fmt.Errorf("llmtest: no scripted reply for %q", req.Operation)
	}
	p.queues[req.Operation] = q[1:]
	return q[0].text, q[0].err
}

// Calls reports how many requests were made for operation.
func (p *Provider) Calls(operation string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.requests {
		if r.Operation == operation {
			n++
		}
	}
	return n
}

// Requests returns every request received, in order.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Pending reports how many scripted replies have not been consumed.
func (p *Provider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}
