package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/ai"
)

type fakeResponse struct {
	resp  *genai.GenerateContentResponse
	err   error
	block bool
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	calls   int
	models  []string
	configs []*genai.GenerateContentConfig
	prompts []string
}

func (f *fakeModels) enqueue(responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, responses...)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls++
	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}
	if len(f.queue) == 0 {
		f.mu.Unlock()
		return nil, errors.New("unexpected call")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()

	if next.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return next.resp, next.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &delays
}

func TestGeneratorReturnsJoinedText(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{resp: textResponse("  first ", "", "second")})

	temp := float32(0.2)
	g := newGenerator(models, Options{Model: "gemini-test", Temperature: &temp, Logger: zap.NewNop()})

	output, err := g.GenerateContent(context.Background(), "  score this  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.models[0] != "gemini-test" {
		t.Fatalf("unexpected model: %q", models.models[0])
	}
	if models.prompts[0] != "score this" {
		t.Fatalf("expected trimmed prompt, got %q", models.prompts[0])
	}
	if cfg := models.configs[0]; cfg == nil || cfg.Temperature == nil || *cfg.Temperature != temp {
		t.Fatalf("expected temperature to be forwarded, got %+v", cfg)
	}
}

func TestGeneratorDefaults(t *testing.T) {
	g := newGenerator(&fakeModels{}, Options{})
	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}
	if g.timeout != defaultTimeout || g.maxRetries != 1 || g.limiter != nil {
		t.Fatalf("unexpected defaults: %+v", g)
	}
	if g.config() != nil {
		t.Fatalf("expected nil config without temperature")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := newGenerator(&fakeModels{}, Options{})
	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	delays := noWait(t)

	models := &fakeModels{}
	models.enqueue(
		fakeResponse{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		fakeResponse{resp: textResponse("retry ok")},
	)

	g := newGenerator(models, Options{MaxRetries: 2, Logger: zap.NewNop()})

	output, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
	if len(*delays) != 1 || (*delays)[0] != baseRetryDelay {
		t.Fatalf("unexpected backoff delays: %v", *delays)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(fakeResponse{err: tempErr}, fakeResponse{err: tempErr})

	g := newGenerator(models, Options{MaxRetries: 2, Logger: zap.NewNop()})

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !ai.IsKind(err, ai.KindUnavailable) {
		t.Fatalf("expected unavailable service error, got %v", err)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestGeneratorDoesNotRetryPermanentErrors(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: &genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"}})

	g := newGenerator(models, Options{MaxRetries: 3, Logger: zap.NewNop()})

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !ai.IsKind(err, ai.KindUnauthorized) {
		t.Fatalf("expected unauthorized service error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(fakeResponse{err: genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}})

	g := newGenerator(models, Options{MaxRetries: 3, Logger: zap.NewNop()})

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !ai.IsKind(err, ai.KindRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGeneratorHonoursShortQuotaDelay(t *testing.T) {
	delays := noWait(t)

	models := &fakeModels{}
	models.enqueue(
		fakeResponse{err: genai.APIError{
			Code:    http.StatusTooManyRequests,
			Details: []map[string]any{{"retryDelay": "5s"}},
		}},
		fakeResponse{resp: textResponse("ok")},
	)

	g := newGenerator(models, Options{MaxRetries: 2, Logger: zap.NewNop()})

	if _, err := g.GenerateContent(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*delays) != 1 || (*delays)[0] != 5*time.Second {
		t.Fatalf("expected server requested delay, got %v", *delays)
	}
}

func TestGeneratorTimeout(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{block: true})

	g := newGenerator(models, Options{Timeout: 10 * time.Millisecond, Logger: zap.NewNop()})

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !ai.IsKind(err, ai.KindTimeout) {
		t.Fatalf("expected timeout service error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestGeneratorCanceledByCaller(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{block: true})

	g := newGenerator(models, Options{Logger: zap.NewNop()})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := g.GenerateContent(ctx, "prompt")
	if !ai.IsKind(err, ai.KindCanceled) {
		t.Fatalf("expected canceled service error, got %v", err)
	}
}

func TestGeneratorEmptyReply(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(fakeResponse{resp: &genai.GenerateContentResponse{}})

	g := newGenerator(models, Options{MaxRetries: 3, Logger: zap.NewNop()})

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !ai.IsKind(err, ai.KindEmptyReply) {
		t.Fatalf("expected empty reply error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("expected no retry for empty reply, got %d calls", models.calls)
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want time.Duration
		ok   bool
	}{
		{name: "message seconds", err: genai.APIError{Message: "Please retry in 12.5s."}, want: 12500 * time.Millisecond, ok: true},
		{name: "details", err: genai.APIError{Details: []map[string]any{{"@type": "RetryInfo", "retryDelay": "41s"}}}, want: 41 * time.Second, ok: true},
		{name: "no hint", err: genai.APIError{Message: "quota exhausted"}},
		{name: "not api error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := retryDelay(tt.err)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}
