package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mkaralis/storeforge/internal/catalog"
	"github.com/mkaralis/storeforge/internal/observability"
	"github.com/mkaralis/storeforge/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubModel returns canned responses per call, cycling the last one.
type stubModel struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubModel) Generate(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if s.errs != nil && i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.responses[i], nil
}

func newTestOrchestrator(model ModelClient) *Orchestrator {
	o := NewOrchestrator(model, 3, 10*time.Millisecond, testLogger)
	o.sleep = func(time.Duration) {}
	return o
}

func fullCatalogJSON(t *testing.T) string {
	t.Helper()
	values := make(map[string]any, len(catalog.Fields))
	for _, f := range catalog.Fields {
		values[f.Path] = "generated"
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(encoded)
}

func TestGenerateWholeAttempt(t *testing.T) {
	model := &stubModel{responses: []string{fullCatalogJSON(t)}}
	o := newTestOrchestrator(model)

	result, usage, err := o.Generate(context.Background(), "https://example.com/p", "en", "page text")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if model.calls != 1 {
		t.Errorf("expected a single model call, got %d", model.calls)
	}
	if len(result) != len(catalog.Fields) {
		t.Errorf("expected %d fields, got %d", len(catalog.Fields), len(result))
	}
	if usage.InputTokens == 0 || usage.OutputTokens == 0 {
		t.Error("expected nonzero token estimate")
	}
	if usage.Pricing.TotalCost <= 0 {
		t.Error("expected nonzero cost estimate")
	}
}

func TestGenerateCoversEveryCatalogPath(t *testing.T) {
	// Whole attempt returns garbage, every chunk fails: the result must
	// still carry a value for every declared path.
	model := &stubModel{responses: []string{"not json at all"}}
	o := newTestOrchestrator(model)

	result, _, err := o.Generate(context.Background(), "https://example.com/p", "en", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, field := range catalog.Fields {
		value, ok := result[field.Path]
		if !ok {
			t.Errorf("path %q absent from result", field.Path)
			continue
		}
		if value != PlaceholderFailed && value != PlaceholderNotGenerated {
			t.Errorf("path %q: expected placeholder, got %v", field.Path, value)
		}
	}
}

func TestGenerateChunkedFallback(t *testing.T) {
	// First call (whole attempt) fails, every chunk call succeeds with
	// content for one known path.
	responses := []string{"garbage", `{"Product Title": "Acme™"}`}
	model := &stubModel{responses: responses}
	o := newTestOrchestrator(model)

	result, _, err := o.Generate(context.Background(), "https://example.com/p", "en", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if result["Product Title"] != "Acme™" {
		t.Errorf("chunk result not merged: %v", result["Product Title"])
	}
	// Unreturned paths are reconciled with the not-generated marker.
	missing := "sections.pp_faq_TtURdM.blocks.question_cwFiY9.settings.text"
	if result[missing] != PlaceholderNotGenerated {
		t.Errorf("expected reconciliation placeholder, got %v", result[missing])
	}
	if model.calls < 2 {
		t.Errorf("expected chunked calls after whole failure, got %d calls", model.calls)
	}
}

func TestGenerateGroupRetriesThenPlaceholder(t *testing.T) {
	failing := errors.New("model unavailable")
	model := &stubModel{
		responses: []string{""},
		errs:      []error{failing},
	}
	o := newTestOrchestrator(model)

	var slept int
	o.sleep = func(time.Duration) { slept++ }

	result, _, err := o.Generate(context.Background(), "https://example.com/p", "en", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	groups := catalog.GroupFields(catalog.Fields)
	// Whole attempt + retries per group.
	expectedCalls := 1 + len(groups)*3
	if model.calls != expectedCalls {
		t.Errorf("expected %d calls, got %d", expectedCalls, model.calls)
	}
	// Sleeps happen between retries, not after the last one.
	if slept != len(groups)*2 {
		t.Errorf("expected %d retry delays, got %d", len(groups)*2, slept)
	}
	for _, field := range groups[0] {
		if result[field.Path] != PlaceholderFailed {
			t.Errorf("path %q: expected failure placeholder, got %v", field.Path, result[field.Path])
		}
	}
}

func TestGenerateCountsChunkRetries(t *testing.T) {
	failing := errors.New("model unavailable")
	model := &stubModel{
		responses: []string{""},
		errs:      []error{failing},
	}
	o := newTestOrchestrator(model)
	metrics := observability.NewMetrics(testLogger)
	o.SetMetrics(metrics)

	if _, _, err := o.Generate(context.Background(), "https://example.com/p", "en", ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// A retry is counted every time a failed attempt has budget left,
	// so two per group with three attempts each.
	groups := catalog.GroupFields(catalog.Fields)
	want := int64(len(groups) * 2)
	if got := metrics.ChunkRetries.Load(); got != want {
		t.Errorf("chunk retries: got %d, want %d", got, want)
	}
}

func TestAttemptMalformedResponse(t *testing.T) {
	model := &stubModel{responses: []string{"Sorry, I can only answer in prose."}}
	o := newTestOrchestrator(model)

	_, err := o.attempt(context.Background(), "prompt", &usageCounter{})
	if !errors.Is(err, types.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "Sorry, I can only answer in prose.") {
		t.Errorf("raw response text missing from error: %v", err)
	}
}

func TestGenerateContextCancellation(t *testing.T) {
	model := &stubModel{responses: []string{"garbage"}}
	o := newTestOrchestrator(model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := o.Generate(ctx, "https://example.com/p", "en", "")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestMergeChunkSemantics(t *testing.T) {
	result := map[string]any{
		"obj":  map[string]any{"a": 1},
		"list": []any{"x"},
		"str":  "old",
	}

	mergeChunk(result, map[string]any{
		"obj":  map[string]any{"b": 2},
		"list": []any{"y"},
		"str":  "new",
	})

	obj := result["obj"].(map[string]any)
	if obj["a"] != 1 || obj["b"] != 2 {
		t.Errorf("object merge failed: %v", obj)
	}
	list := result["list"].([]any)
	if len(list) != 2 || list[0] != "x" || list[1] != "y" {
		t.Errorf("list extend failed: %v", list)
	}
	if result["str"] != "new" {
		t.Errorf("scalar overwrite failed: %v", result["str"])
	}
}

func TestUsageEstimate(t *testing.T) {
	u := &usageCounter{}
	u.addInput(strings.Repeat("word ", 1000))
	u.addOutput(strings.Repeat("word ", 500))

	usage := u.total()
	if usage.InputTokens != 1000 {
		t.Errorf("expected 1000 input tokens, got %d", usage.InputTokens)
	}
	if usage.OutputTokens != 500 {
		t.Errorf("expected 500 output tokens, got %d", usage.OutputTokens)
	}

	wantInput := round6(1000.0 / 1_000_000 * inputRate)
	if usage.Pricing.InputCost != wantInput {
		t.Errorf("input cost: got %v, want %v", usage.Pricing.InputCost, wantInput)
	}
	wantTotal := round6(1000.0/1_000_000*inputRate + 500.0/1_000_000*outputRate + 1000.0/1_000_000*cacheRate)
	if fmt.Sprintf("%.6f", usage.Pricing.TotalCost) != fmt.Sprintf("%.6f", wantTotal) {
		t.Errorf("total cost mismatch: %v vs %v", usage.Pricing.TotalCost, wantTotal)
	}
}

func TestBuildPromptContainsLanguageAndFields(t *testing.T) {
	prompt := BuildPrompt("https://example.com/p", "el", "some content", catalog.Fields[:3])

	if !strings.Contains(prompt, "https://example.com/p") {
		t.Error("prompt missing URL")
	}
	if !strings.Contains(prompt, "Greek") {
		t.Error("prompt missing language instruction")
	}
	if !strings.Contains(prompt, "Product Title") {
		t.Error("prompt missing field path")
	}
	if !strings.Contains(prompt, "some content") {
		t.Error("prompt missing page content")
	}
}
