package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel     = "gemini-2.5-pro"
	defaultTimeout   = 60 * time.Second
	baseRetryDelay   = 2 * time.Second
	maxRetryDelay    = 30 * time.Second
	defaultMaxLogLen = 200
)

var (
	errEmptyResponse = errors.New("gemini api returned empty response")

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

	wait = utils.WaitFor
)

// contentModels is the subset of genai.Models used by the generator.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures a Generator.
type Options struct {
	APIKey string
	Model  string
	// Timeout bounds a single request to the API.
	Timeout time.Duration
	// MaxRetries is the total number of attempts for temporary failures.
	MaxRetries        int
	Temperature       *float32
	RequestsPerMinute int
	MaxLogLength      int
	Logger            *zap.Logger
}

// Generator sends prompts to the Gemini API and returns the textual reply.
type Generator struct {
	models      contentModels
	model       string
	timeout     time.Duration
	maxRetries  int
	temperature *float32
	limiter     *rate.Limiter
	maxLogLen   int
	logger      *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts), nil
}

func newGenerator(models contentModels, opts Options) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLen
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Generator{
		models:      models,
		model:       model,
		timeout:     timeout,
		maxRetries:  maxRetries,
		temperature: opts.Temperature,
		limiter:     limiter,
		maxLogLen:   maxLogLen,
		logger:      logger.WithCommonFields(opts.Logger, Provider, model),
	}
}

// GenerateContent sends the prompt to Gemini and returns the concatenated reply text.
// Failures are reported as *ai.ServiceError.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", ai.Classify(ctx, Provider, err)
			}
		}

		output, err := g.generate(ctx, prompt)
		if err == nil {
			return output, nil
		}
		lastErr = err

		var svcErr *ai.ServiceError
		if !errors.As(err, &svcErr) || !svcErr.Temporary() || attempt == g.maxRetries {
			break
		}

		delay := time.Duration(attempt) * baseRetryDelay
		if requested, ok := retryDelay(err); ok {
			if requested > maxRetryDelay {
				g.logger.Warn("gemini asked to retry later than allowed, giving up",
					zap.Duration("requested_delay", requested),
					zap.Duration("max_delay", maxRetryDelay),
				)
				break
			}
			delay = requested
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxRetries),
			zap.String("kind", string(svcErr.Kind)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", ai.Classify(ctx, Provider, err)
		}
	}

	return "", lastErr
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	started := time.Now()
	resp, err := g.models.GenerateContent(callCtx, g.model, genai.Text(prompt), g.config())
	if err != nil {
		return "", classify(ctx, err)
	}

	output := responseText(resp)
	if output == "" {
		return "", &ai.ServiceError{Provider: Provider, Kind: ai.KindEmptyReply, Err: errEmptyResponse}
	}

	g.logger.Debug("gemini generate content response",
		zap.Duration("took", time.Since(started)),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) config() *genai.GenerateContentConfig {
	if g.temperature == nil {
		return nil
	}
	return &genai.GenerateContentConfig{Temperature: genai.Ptr(*g.temperature)}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify maps transport and API failures onto the service error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		if apiErr, ok := asAPIError(err); ok {
			return &ai.ServiceError{
				Provider: Provider,
				Kind:     ai.KindFromHTTPStatus(apiErr.Code),
				Err:      fmt.Errorf("generate content: %w", err),
			}
		}
	}

	return ai.Classify(ctx, Provider, fmt.Errorf("generate content: %w", err))
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}

	return genai.APIError{}, false
}

// retryDelay extracts the server-requested delay from a quota error, if any.
func retryDelay(err error) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if len(match) != 2 {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}
