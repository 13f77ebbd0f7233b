// Package report renders screening results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spigell/resume-screener/internal/candidate"
	"github.com/spigell/resume-screener/internal/session"
)

const (
	boxWidth = 72
	barWidth = 10
	cellMax  = 40
)

// Printer writes human readable tables and boxes.
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintRanking prints records as a table in the order given.
//
//nolint:errcheck // terminal output
func (p *Printer) PrintRanking(records []*candidate.Record) {
	if len(records) == 0 {
		fmt.Fprintln(p.out, "No candidates were scored.")
		return
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tSCORE\tMATCHES\tGAPS\tID")
	for i, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			truncate(r.Name, cellMax),
			ScoreBar(r.Score),
			truncate(joinOrDash(r.Matches), cellMax),
			truncate(joinOrDash(r.Gaps), cellMax),
			r.ShortID(),
		)
	}
	w.Flush()
}

// PrintCandidate prints every field of a record in a box.
func (p *Printer) PrintCandidate(r *candidate.Record) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Score:   %s\n", ScoreBar(r.Score))
	fmt.Fprintf(&sb, "Source:  %s\n", r.Source)
	fmt.Fprintf(&sb, "ID:      %s\n\n", r.ID)

	writeList(&sb, "Matching skills", r.Matches)
	writeList(&sb, "Gaps", r.Gaps)
	writeList(&sb, "Summary", r.Summary)

	sb.WriteString("Resume excerpt:\n")
	sb.WriteString(r.ResumeExcerpt)
	sb.WriteString("\n")

	if r.Outreach != "" {
		sb.WriteString("\nOutreach email:\n")
		sb.WriteString(r.Outreach)
		sb.WriteString("\n")
	}

	p.printBox(strings.ToUpper(r.Name), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintNotices lists items that could not be processed.
//
//nolint:errcheck // terminal output
func (p *Printer) PrintNotices(notices []session.Notice) {
	if len(notices) == 0 {
		return
	}

	fmt.Fprintf(p.out, "\n%d item(s) need attention:\n", len(notices))
	for _, n := range notices {
		fmt.Fprintf(p.out, "  ! %s\n", n)
	}
}

// ScoreBar renders a score as a fixed-width bar followed by the percentage.
func ScoreBar(score int) string {
	score = max(0, min(100, score))
	filled := (score*barWidth + 50) / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + fmt.Sprintf(" %3d%%", score)
}

//nolint:errcheck // terminal output
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)

	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(title, inner), inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, inner) {
			fmt.Fprintf(p.out, "│ %s │\n", pad(wrapped, inner))
		}
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, title string, items []string) {
	sb.WriteString(title + ":\n")
	if len(items) == 0 {
		sb.WriteString("  -\n\n")
		return
	}
	for _, item := range items {
		sb.WriteString("  • " + item + "\n")
	}
	sb.WriteString("\n")
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// wrap splits line into chunks of at most width runes, breaking on spaces when possible.
func wrap(line string, width int) []string {
	line = strings.ReplaceAll(line, "\t", "    ")
	if utf8.RuneCountInString(line) <= width {
		return []string{line}
	}

	var (
		lines   []string
		current []rune
	)
	for _, word := range strings.Fields(line) {
		runes := []rune(word)
		for len(runes) > width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		switch {
		case len(current) == 0:
			current = runes
		case len(current)+1+len(runes) <= width:
			current = append(append(current, ' '), runes...)
		default:
			lines = append(lines, string(current))
			current = runes
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
