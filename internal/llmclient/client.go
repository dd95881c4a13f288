// Package llmclient wraps google.golang.org/genai behind a strict
// JSON-schema calling convention shared by the Phase-1 Classifier and the
// Phase-2 Enricher, circuit-broken with sony/gobreaker, the way the
// teacher's internal/perception package wraps each provider's HTTP API
// behind a common Complete/CompleteWithSystem shape.
package llmclient

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

// Client is the LLM transport shared by classify and enrich. It is nil-safe
// for its zero value in the sense that callers always get LLM_NOT_INITIALIZED
// rather than a nil-pointer panic when no API key was configured at boot.
type Client struct {
	genaiClient *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	usage       *UsageTracker
}

// Result is the raw outcome of one structured-JSON call.
type Result struct {
	JSON      []byte
	FromCache bool
	Usage     TokenCounts
}

// New constructs a Client from configuration. If apiKey is empty it returns
// a Client whose Generate calls always fail with KindLLMNotInitialized —
// this is the valid boot state exercised by spec scenario S6 (classifier
// fallback when the LLM is unreachable), see DESIGN.md.
func New(cfg config.LLMConfig) (*Client, error) {
	c := &Client{
		model: cfg.Model,
		usage: NewUsageTracker(),
	}

	settings := gobreaker.Settings{
		Name:        "llmclient",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    parseDurationOrDefault(cfg.CircuitBreaker.Interval, time.Minute),
		Timeout:     parseDurationOrDefault(cfg.CircuitBreaker.Timeout, 30*time.Second),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 4 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.CircuitBreaker.FailureThreshold
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)

	if cfg.APIKey == "" {
		logging.LLM("no API key configured; llmclient will surface LLM_NOT_INITIALIZED until one is provided")
		return c, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		logging.Get(logging.CategoryLLM).Error("failed to create genai client: %v", err)
		return nil, curatorerrors.Wrap(curatorerrors.KindLLMNotInitialized, err, "create genai client")
	}
	c.genaiClient = client
	logging.LLM("genai client ready (model=%s)", cfg.Model)
	return c, nil
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GenerateJSON issues one structured-output call, enumerated system prompt
// plus a user prompt built from caller-supplied fields, validated by the
// response schema at the API layer (spec §4.3/§4.7: "requires a strict JSON
// response").
func (c *Client) GenerateJSON(ctx context.Context, operation, systemPrompt, userPrompt string, schema *genai.Schema) (*Result, error) {
	if c.genaiClient == nil {
		return nil, curatorerrors.New(curatorerrors.KindLLMNotInitialized, "llm client has no configured API key")
	}

	timer := logging.StartTimer(logging.CategoryLLM, "GenerateJSON:"+operation)
	defer timer.Stop()

	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model,
			[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
			&genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
				ResponseMIMEType:  "application/json",
				ResponseSchema:    schema,
			})
		if err != nil {
			return nil, classifyLLMErr(err)
		}
		text := resp.Text()
		if text == "" {
			return nil, curatorerrors.New(curatorerrors.KindLLMInvalidResponse, "empty response from LLM")
		}
		var usage TokenCounts
		if resp.UsageMetadata != nil {
			usage = TokenCounts{
				Input:  int(resp.UsageMetadata.PromptTokenCount),
				Output: int(resp.UsageMetadata.CandidatesTokenCount),
				Total:  int(resp.UsageMetadata.TotalTokenCount),
			}
		}
		return &Result{JSON: []byte(text), Usage: usage}, nil
	})
	if err != nil {
		logging.Get(logging.CategoryLLM).Warn("GenerateJSON(%s) failed: %v", operation, err)
		return nil, err
	}

	result := out.(*Result)
	c.usage.Record(operation, c.model, result.Usage)
	return result, nil
}

// UsageStats exposes the running by-model/by-operation totals, the shape
// carried over from the teacher's internal/usage tracker (see DESIGN.md).
func (c *Client) UsageStats() Stats {
	return c.usage.Snapshot()
}

func classifyLLMErr(err error) error {
	msg := err.Error()
	switch {
	case contains(msg, "429") || contains(msg, "rate"):
		return curatorerrors.Wrap(curatorerrors.KindLLMRateLimited, err, "llm rate limited")
	case contains(msg, "deadline") || contains(msg, "timeout") || contains(msg, "context deadline exceeded"):
		return curatorerrors.Wrap(curatorerrors.KindLLMTimeout, err, "llm call timed out")
	case contains(msg, "401") || contains(msg, "403") || contains(msg, "api key"):
		return curatorerrors.Wrap(curatorerrors.KindLLMNotInitialized, err, "llm rejected credentials")
	default:
		return curatorerrors.Wrap(curatorerrors.KindLLMUnavailable, err, "llm call failed")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
