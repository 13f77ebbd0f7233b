package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/candidate"
	"github.com/spigell/resume-screener/internal/report"
	"github.com/spigell/resume-screener/internal/session"
)

const (
	PromptShowCandidate = "Show candidate details"
	PromptOutreach      = "Generate outreach email"
	PromptRanking       = "Show ranking again"
	PromptExport        = "Export report to Excel"
	PromptDump          = "Dump session to file"
	PromptExit          = "Exit"
	PromptBack          = "back"
)

var menuItems = []string{PromptShowCandidate, PromptOutreach, PromptRanking, PromptExport, PromptDump, PromptExit}

type selectFunc func(label string, items []string) (string, error)

func runSelect(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	_, selected, err := prompt.Run()
	return selected, err
}

// interactive is the menu shown after a batch has been screened.
type interactive struct {
	ctx       context.Context
	config    *Config
	session   *session.Session
	outreach  session.OutreachWriter
	printer   *report.Printer
	logger    *zap.Logger
	selectRun selectFunc
	now       func() time.Time
}

func (m *interactive) loop() error {
	for {
		action, err := m.selectRun("What next?", menuItems)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		if err := m.handleAction(action); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func (m *interactive) handleAction(action string) error {
	switch action {
	case PromptShowCandidate:
		record, err := m.chooseCandidate()
		if err != nil || record == nil {
			return err
		}
		m.printer.PrintCandidate(record)
		return nil
	case PromptOutreach:
		record, err := m.chooseCandidate()
		if err != nil || record == nil {
			return err
		}
		return m.generateOutreach(record)
	case PromptRanking:
		m.printer.PrintRanking(m.session.Ranked())
		m.printer.PrintNotices(m.session.Notices)
		return nil
	case PromptExport:
		path := defaultExportPath(m.config, m.clock())
		if err := exportReport(path, m.session, m.logger); err != nil {
			m.logger.Error("exporting the report", zap.Error(err))
		}
		return nil
	case PromptDump:
		return dumpSession(m.session, m.logger)
	case PromptExit:
		m.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// chooseCandidate returns nil when the user goes back.
func (m *interactive) chooseCandidate() (*candidate.Record, error) {
	ranked := m.session.Ranked()
	labels := make([]string, 0, len(ranked)+1)
	byLabel := make(map[string]*candidate.Record, len(ranked))
	for i, r := range ranked {
		label := fmt.Sprintf("#%d %s %d%%", i+1, r.Label(), r.Score)
		labels = append(labels, label)
		byLabel[label] = r
	}

	selected, err := m.selectRun("Choose a candidate and press ENTER", append(labels, PromptBack))
	if err != nil {
		return nil, err
	}
	if selected == PromptBack {
		return nil, nil
	}

	record, ok := byLabel[selected]
	if !ok {
		return nil, fmt.Errorf("there is no such candidate %q", selected)
	}
	return record, nil
}

// generateOutreach never fails the menu on service errors: they are shown and logged.
func (m *interactive) generateOutreach(record *candidate.Record) error {
	notices := len(m.session.Notices)

	updated, err := m.session.AttachOutreach(m.ctx, m.outreach, record.ID, m.logger)
	if err != nil {
		m.printer.PrintNotices(m.session.Notices[notices:])
		return nil
	}

	m.printer.PrintCandidate(updated)

	path := filepath.Join(m.config.OutputDir, updated.OutreachFilename())
	if err := os.WriteFile(path, []byte(updated.Outreach+"\n"), 0o644); err != nil {
		m.logger.Error("saving the outreach email", zap.String("filename", path), zap.Error(err))
		return nil
	}

	m.logger.Info("saved the outreach email", zap.String("filename", path))
	return nil
}

func (m *interactive) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}
