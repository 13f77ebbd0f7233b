package screening

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/candidate"
)

// OutreachWriter drafts recruiter emails for scored candidates.
type OutreachWriter struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewOutreachWriter(generator ai.Generator, logger *zap.Logger) *OutreachWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutreachWriter{generator: generator, logger: logger}
}

// Write returns the generated email text as produced by the model.
func (w *OutreachWriter) Write(ctx context.Context, record *candidate.Record, jobDescription string) (string, error) {
	if record == nil {
		return "", errors.New("candidate record is required")
	}

	prompt := BuildOutreachPrompt(record.Name, record.Score, record.Matches, jobDescription)

	email, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", ai.Classify(ctx, "", err)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", &ai.ServiceError{Kind: ai.KindEmptyReply, Err: errors.New("outreach email is empty")}
	}

	w.logger.Debug("outreach email generated", zap.Int("length", len(email)))

	return email, nil
}
