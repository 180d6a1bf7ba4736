package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Client wraps a Provider with schema enforcement and bounded retry.
type Client struct {
	provider    Provider
	validate    *validator.Validate
	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration
	log         *zap.Logger
}

type Option func(*Client)

// WithMaxAttempts caps the total number of calls per completion.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithTimeout bounds each individual backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider:    p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProviderName() string { return c.provider.Name() }

// Complete sends req and decodes the answer into T. Output that fails to
// parse or validate is retried after a fixed delay, up to the client's attempt
// budget; a backend error is returned at once. There is no fallback value:
// the caller gets a valid *T or an error.
func Complete[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	if err := req.check(); err != nil {
		return nil, err
	}

	var (
		out     *T
		attempt int
	)
	op := func() error {
		attempt++
		raw, err := c.call(ctx, req)
		if err != nil {
			observe(c.provider.Name(), req.Operation, statusError)
			return backoff.Permanent(fmt.Errorf("%s: %w", req.Operation, err))
		}
		v, err := decode[T](raw, req.Schema, c.validate)
		if err != nil {
			observe(c.provider.Name(), req.Operation, statusInvalid)
			return err
		}
		observe(c.provider.Name(), req.Operation, statusSuccess)
		out = v
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.log.Warn("completion rejected, retrying",
			zap.String("operation", req.Operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			c.log.Error("completion failed validation on every attempt",
				zap.String("operation", req.Operation),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, req.Operation, attempt, err)
		}
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := c.provider.Complete(ctx, req)
	completionDuration.WithLabelValues(c.provider.Name(), req.Operation).Observe(time.Since(start).Seconds())
	c.log.Debug("completion returned",
		zap.String("provider", c.provider.Name()),
		zap.String("operation", req.Operation),
		zap.Duration("took", time.Since(start)),
		zap.Int("bytes", len(raw)))
	return raw, err
}

func decode[T any](raw string, schema *jsonschema.Definition, v *validator.Validate) (*T, error) {
	text := cleanJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if schema != nil {
		for _, key := range schema.Required {
			value, ok := fields[key]
			if !ok || string(value) == "null" {
				return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidResponse, key)
			}
		}
	}

	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := v.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

// cleanJSON strips Markdown fences and any chatter around the JSON object.
func cleanJSON(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}
