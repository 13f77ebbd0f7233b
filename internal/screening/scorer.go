package screening

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/candidate"
	"github.com/spigell/resume-screener/internal/utils"
)

const defaultMaxLogLength = 200

// Scorer asks the generator to assess a resume against a job description.
type Scorer struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Score returns a record holding the normalized assessment. Service failures are
// returned as *ai.ServiceError and unusable replies as *MalformedReplyError.
func (s *Scorer) Score(ctx context.Context, jobDescription, resume string) (*candidate.Record, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, errors.New("resume text is empty")
	}

	prompt := BuildScorePrompt(jobDescription, resume)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, ai.Classify(ctx, "", err)
	}

	record, err := Normalize(raw)
	if err != nil {
		s.logger.Debug("unusable scoring reply",
			zap.Int("response_length", utf8.RuneCountInString(raw)),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
			zap.Error(err),
		)
		return nil, err
	}

	return record, nil
}
