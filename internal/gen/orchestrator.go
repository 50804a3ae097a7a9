package gen

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mkaralis/storeforge/internal/catalog"
	"github.com/mkaralis/storeforge/internal/observability"
	"github.com/mkaralis/storeforge/internal/types"
)

// Placeholders written into the result when generation cannot produce a
// real value. Exhausted groups get the "failed" marker; reconciliation
// fills any remaining gap with "not generated".
const (
	PlaceholderFailed       = "[Content generation failed]"
	PlaceholderNotGenerated = "[Content not generated]"
)

// Per-million-token rates used for the cost estimate.
const (
	inputRate  = 0.0375
	outputRate = 0.15
	cacheRate  = 0.01
)

// Orchestrator drives the generation run: one whole-catalog attempt,
// then grouped chunks with per-group retries, then a reconciliation pass
// that guarantees every catalog path ends up in the result.
type Orchestrator struct {
	client     ModelClient
	retries    int
	retryDelay time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger

	// sleep is swappable so retry timing can be tested.
	sleep func(time.Duration)
}

// NewOrchestrator creates a generation orchestrator.
func NewOrchestrator(client ModelClient, retries int, retryDelay time.Duration, logger *slog.Logger) *Orchestrator {
	if retries < 1 {
		retries = 1
	}
	return &Orchestrator{
		client:     client,
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger.With("component", "orchestrator"),
		sleep:      time.Sleep,
	}
}

// SetMetrics attaches operational counters to the orchestrator.
func (o *Orchestrator) SetMetrics(m *observability.Metrics) {
	o.metrics = m
}

// Generate produces a value for every catalog field. The returned result
// always covers the full catalog; failures degrade to placeholders
// rather than aborting the run.
func (o *Orchestrator) Generate(ctx context.Context, url, language, pageContent string) (types.GenerationResult, types.TokenUsage, error) {
	result := make(types.GenerationResult)
	usage := &usageCounter{}

	wholePrompt := BuildPrompt(url, language, pageContent, catalog.Fields)
	if whole, err := o.attempt(ctx, wholePrompt, usage); err == nil {
		for path, value := range whole {
			result[path] = value
		}
	} else {
		o.logger.Warn("full generation failed, switching to chunks", "error", err)
		if err := o.generateChunked(ctx, url, language, pageContent, result, usage); err != nil {
			return nil, usage.total(), err
		}
	}

	// Reconciliation: the result must cover every declared path.
	for _, field := range catalog.Fields {
		if _, ok := result[field.Path]; !ok {
			result[field.Path] = PlaceholderNotGenerated
		}
	}

	return result, usage.total(), nil
}

// generateChunked walks the catalog groups, retrying each up to the
// configured budget and merging successful chunks into result. A group
// that exhausts its retries fills its missing paths with the failure
// placeholder; only context cancellation aborts the whole pass.
func (o *Orchestrator) generateChunked(ctx context.Context, url, language, pageContent string, result types.GenerationResult, usage *usageCounter) error {
	for i, group := range catalog.GroupFields(catalog.Fields) {
		prompt := BuildPrompt(url, language, pageContent, group)

		var succeeded bool
		for retry := 0; retry < o.retries; retry++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			chunk, err := o.attempt(ctx, prompt, usage)
			if err != nil {
				o.logger.Error("group generation failed",
					"group", i, "attempt", retry+1, "error", err)
				if retry < o.retries-1 {
					if o.metrics != nil {
						o.metrics.ChunkRetries.Add(1)
					}
					o.sleep(o.retryDelay)
				}
				continue
			}

			mergeChunk(result, chunk)
			succeeded = true
			break
		}

		if !succeeded {
			for _, field := range group {
				if _, ok := result[field.Path]; !ok {
					result[field.Path] = PlaceholderFailed
				}
			}
		}
	}
	return nil
}

// attempt is one model call plus parse. Both transport failures and
// unparseable responses count as a failed attempt.
func (o *Orchestrator) attempt(ctx context.Context, prompt string, usage *usageCounter) (map[string]any, error) {
	usage.addInput(prompt)

	text, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, &types.GenerateError{Stage: "chunk", Err: err}
	}
	usage.addOutput(text)

	parsed := ParseResponse(text)
	if !parsed.Ok {
		raw := strings.TrimSpace(parsed.RawText)
		if len(raw) > 120 {
			raw = raw[:120]
		}
		return nil, &types.GenerateError{Stage: "parse", Err: fmt.Errorf("%w: %q", types.ErrMalformedResponse, raw)}
	}
	return parsed.Value, nil
}

// mergeChunk folds one chunk result into the accumulated result.
// Objects merge key-wise, lists extend, scalars overwrite.
func mergeChunk(result types.GenerationResult, chunk map[string]any) {
	for path, value := range chunk {
		switch v := value.(type) {
		case map[string]any:
			existing, ok := result[path].(map[string]any)
			if !ok {
				existing = make(map[string]any)
			}
			for k, inner := range v {
				existing[k] = inner
			}
			result[path] = existing
		case []any:
			existing, _ := result[path].([]any)
			result[path] = append(existing, v...)
		default:
			result[path] = value
		}
	}
}

// usageCounter accumulates a word-count token proxy across all model
// calls in one run. Counts approximate tokens; the estimate is for
// operator visibility, not billing.
type usageCounter struct {
	inputWords  int
	outputWords int
}

func (u *usageCounter) addInput(s string)  { u.inputWords += len(strings.Fields(s)) }
func (u *usageCounter) addOutput(s string) { u.outputWords += len(strings.Fields(s)) }

func (u *usageCounter) total() types.TokenUsage {
	inputCost := float64(u.inputWords) / 1_000_000 * inputRate
	outputCost := float64(u.outputWords) / 1_000_000 * outputRate
	cacheCost := float64(u.inputWords) / 1_000_000 * cacheRate

	return types.TokenUsage{
		InputTokens:  u.inputWords,
		OutputTokens: u.outputWords,
		Pricing: types.TokenPricing{
			InputCost:  round6(inputCost),
			OutputCost: round6(outputCost),
			CacheCost:  round6(cacheCost),
			TotalCost:  round6(inputCost + outputCost + cacheCost),
		},
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
