package screening

import (
	"strconv"
	"strings"

	_ "embed"
)

// MaxDocumentRunes caps the length of each document inserted into a prompt.
const MaxDocumentRunes = 20000

//go:embed prompts/score.md
var scoreTemplate string

//go:embed prompts/outreach.md
var outreachTemplate string

// documentEscaper keeps user text from forming block markers or code fences.
var documentEscaper = strings.NewReplacer(
	"<<<", "< < <",
	">>>", "> > >",
	"```", "'''",
)

// BuildScorePrompt renders the scoring prompt for one resume. The output depends
// only on its inputs.
func BuildScorePrompt(jobDescription, resume string) string {
	return strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", sanitizeDocument(jobDescription),
		"{{RESUME}}", sanitizeDocument(resume),
	).Replace(scoreTemplate)
}

// BuildOutreachPrompt renders the outreach email prompt for a scored candidate.
func BuildOutreachPrompt(name string, score int, matches []string, jobDescription string) string {
	skills := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			skills = append(skills, sanitizeLine(m))
		}
	}
	joined := "none"
	if len(skills) > 0 {
		joined = strings.Join(skills, ", ")
	}

	name = sanitizeLine(name)
	if name == "" {
		name = "Candidate"
	}

	return strings.NewReplacer(
		"{{CANDIDATE_NAME}}", name,
		"{{SCORE}}", strconv.Itoa(score),
		"{{MATCHES}}", joined,
		"{{JOB_DESCRIPTION}}", sanitizeDocument(jobDescription),
	).Replace(outreachTemplate)
}

func sanitizeDocument(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > MaxDocumentRunes {
		text = string(runes[:MaxDocumentRunes])
	}
	return documentEscaper.Replace(text)
}

func sanitizeLine(text string) string {
	return strings.Join(strings.Fields(documentEscaper.Replace(text)), " ")
}
