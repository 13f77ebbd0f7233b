package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/extract"
	"github.com/spigell/resume-screener/internal/screening"
)

type Stage string

const (
	StageExtract  Stage = "extract"
	StageScore    Stage = "score"
	StageOutreach Stage = "outreach"
)

type NoticeKind string

const (
	NoticeUnsupportedFormat NoticeKind = "unsupported_format"
	NoticeEmptyDocument     NoticeKind = "empty_document"
	NoticeServiceError      NoticeKind = "service_error"
	NoticeMalformedReply    NoticeKind = "malformed_reply"
	NoticeFailed            NoticeKind = "failed"
)

// Notice is a user-visible failure of a single item. It never ends the session.
type Notice struct {
	UploadID uuid.UUID  `json:"upload_id"`
	Upload   string     `json:"upload"`
	Stage    Stage      `json:"stage"`
	Kind     NoticeKind `json:"kind"`
	Message  string     `json:"message"`
	Err      error      `json:"-"`
}

func newNotice(id uuid.UUID, upload string, stage Stage, err error) Notice {
	return Notice{
		UploadID: id,
		Upload:   upload,
		Stage:    stage,
		Kind:     noticeKind(err),
		Message:  err.Error(),
		Err:      err,
	}
}

func (n Notice) String() string {
	return fmt.Sprintf("%s: %s failed (%s): %s", n.Upload, n.Stage, n.Kind, n.Message)
}

func noticeKind(err error) NoticeKind {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return NoticeUnsupportedFormat
	case errors.Is(err, extract.ErrEmptyDocument):
		return NoticeEmptyDocument
	case errors.Is(err, ai.ErrService):
		return NoticeServiceError
	case errors.Is(err, screening.ErrMalformedReply):
		return NoticeMalformedReply
	default:
		return NoticeFailed
	}
}
