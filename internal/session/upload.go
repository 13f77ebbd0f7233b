package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spigell/resume-screener/internal/extract"
)

// Upload is one document handed to the screener. Each upload has its own ID so
// two files with the same name stay distinct.
type Upload struct {
	ID       uuid.UUID
	Filename string
	MIME     string
	Data     []byte
}

func NewUpload(filename, mime string, data []byte) Upload {
	return Upload{
		ID:       uuid.New(),
		Filename: filename,
		MIME:     mime,
		Data:     data,
	}
}

// LoadFile reads a local file and sniffs its content type.
func LoadFile(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return NewUpload(filepath.Base(path), extract.Detect(data), data), nil
}

// JobDescription is the extracted text every resume is compared against.
type JobDescription struct {
	source string
	text   string
}

func NewJobDescription(source, text string) (*JobDescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("job description is empty")
	}
	return &JobDescription{source: source, text: text}, nil
}

// JobDescriptionFromUpload extracts the text of an uploaded job description.
func JobDescriptionFromUpload(u Upload) (*JobDescription, error) {
	text, err := extract.Text(u.MIME, u.Data)
	if err != nil {
		return nil, fmt.Errorf("extract job description %s: %w", u.Filename, err)
	}
	return NewJobDescription(u.Filename, text)
}

func (j *JobDescription) Source() string { return j.source }

func (j *JobDescription) Text() string { return j.text }

func (j *JobDescription) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source string `json:"source"`
		Text   string `json:"text"`
	}{j.source, j.text})
}
