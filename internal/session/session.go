package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/candidate"
	"github.com/spigell/resume-screener/internal/extract"
	"github.com/spigell/resume-screener/internal/logger"
)

var ErrCandidateNotFound = errors.New("candidate not found")

// Scorer assesses one resume text against the job description.
type Scorer interface {
	Score(ctx context.Context, jobDescription, resume string) (*candidate.Record, error)
}

// OutreachWriter drafts an email for a scored candidate.
type OutreachWriter interface {
	Write(ctx context.Context, record *candidate.Record, jobDescription string) (string, error)
}

// Deps aggregates the collaborators used while processing a batch.
type Deps struct {
	Scorer Scorer
	Logger *zap.Logger
	// Extract defaults to extract.Text.
	Extract func(mime string, data []byte) (string, error)
}

// Summary describes the outcome of one Process call.
type Summary struct {
	Total   int
	Scored  int
	Failed  int
	Skipped int
	Took    time.Duration
}

// Session holds everything produced while screening one job description.
type Session struct {
	ID             uuid.UUID           `json:"id"`
	StartedAt      time.Time           `json:"started_at"`
	JobDescription *JobDescription     `json:"job_description"`
	Candidates     []*candidate.Record `json:"candidates"`
	Notices        []Notice            `json:"notices"`
}

func New(jd *JobDescription) *Session {
	return &Session{
		ID:             uuid.New(),
		StartedAt:      time.Now().UTC(),
		JobDescription: jd,
		Candidates:     make([]*candidate.Record, 0),
		Notices:        make([]Notice, 0),
	}
}

// Process screens uploads one at a time in the given order. A failing upload is
// recorded as a notice and processing moves on. When ctx is done the remaining
// uploads are skipped and the context error is returned; records produced so far
// are kept.
func (s *Session) Process(ctx context.Context, deps Deps, uploads []Upload) (Summary, error) {
	log := logger.WithFields(deps.Logger, zap.String(logger.FieldSession, s.ID.String()))

	extractText := deps.Extract
	if extractText == nil {
		extractText = extract.Text
	}

	started := time.Now()
	summary := Summary{Total: len(uploads)}

	for i, upload := range uploads {
		if err := ctx.Err(); err != nil {
			summary.Skipped = len(uploads) - i
			summary.Took = time.Since(started)
			log.Warn("screening interrupted",
				zap.Int("scored", summary.Scored),
				zap.Int("skipped", summary.Skipped),
				zap.Error(err),
			)
			return summary, err
		}

		if upload.ID == uuid.Nil {
			upload.ID = uuid.New()
		}
		itemLog := logger.WithCandidate(log, upload.ID.String(), upload.Filename)

		text, err := extractText(upload.MIME, upload.Data)
		if err != nil {
			s.notify(itemLog, newNotice(upload.ID, upload.Filename, StageExtract, err))
			summary.Failed++
			continue
		}

		record, err := deps.Scorer.Score(ctx, s.JobDescription.Text(), text)
		if err != nil {
			s.notify(itemLog, newNotice(upload.ID, upload.Filename, StageScore, err))
			summary.Failed++
			continue
		}

		record.ID = upload.ID
		record.Name = candidate.NameFromFilename(upload.Filename)
		record.Source = upload.Filename
		record.ResumeExcerpt = candidate.Excerpt(text, candidate.ExcerptLimit)

		s.Candidates = append(s.Candidates, record)
		summary.Scored++

		itemLog.Info("resume scored",
			zap.String("name", record.Name),
			zap.Int("score", record.Score),
			zap.Int("position", i+1),
			zap.Int("total", len(uploads)),
		)
	}

	summary.Took = time.Since(started)
	log.Info("screening finished",
		zap.Int("initial", summary.Total),
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", summary.Took),
	)

	return summary, nil
}

func (s *Session) notify(log *zap.Logger, n Notice) {
	s.Notices = append(s.Notices, n)
	log.Warn("resume skipped",
		zap.String("stage", string(n.Stage)),
		zap.String("kind", string(n.Kind)),
		zap.Error(n.Err),
	)
}

// Ranked returns the candidates ordered by score, highest first.
func (s *Session) Ranked() []*candidate.Record {
	return candidate.Rank(s.Candidates)
}

func (s *Session) Find(id uuid.UUID) *candidate.Record {
	return candidate.Find(s.Candidates, id)
}

// AttachOutreach generates an outreach email for the candidate and stores it on
// the record. A failure is also kept as a notice.
func (s *Session) AttachOutreach(ctx context.Context, writer OutreachWriter, id uuid.UUID, log *zap.Logger) (*candidate.Record, error) {
	record := s.Find(id)
	if record == nil {
		return nil, ErrCandidateNotFound
	}

	email, err := writer.Write(ctx, record, s.JobDescription.Text())
	if err != nil {
		s.notify(logger.WithCandidate(log, id.String(), record.Source), newNotice(id, record.Source, StageOutreach, err))
		return nil, err
	}

	record.Outreach = email
	return record, nil
}

// DumpToTmpFile writes the session as indented JSON into a temporary file and
// returns its name.
func (s *Session) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "screening_session_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return file.Name(), nil
}
