package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/ai/gemini"
	"github.com/spigell/resume-screener/internal/export"
	"github.com/spigell/resume-screener/internal/extract"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/report"
	"github.com/spigell/resume-screener/internal/screening"
	"github.com/spigell/resume-screener/internal/secrets"
	"github.com/spigell/resume-screener/internal/session"
)

var screenCmd = &cobra.Command{
	Use:   "screen [resume files or globs...]",
	Short: "Score resumes against a job description and review the ranking",
	Run: func(cmd *cobra.Command, args []string) {
		screen(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("jd", "", "job description file (pdf, docx or txt)")
	screenCmd.Flags().StringP("export", "e", "", "write the ranked report to this xlsx file")
	screenCmd.Flags().StringP("output-dir", "o", "", "directory for generated outreach emails and reports")
	screenCmd.Flags().BoolP("yes", "y", false, "do not open the interactive menu after screening")
	screenCmd.Flags().Bool("dump", false, "dump the session to a temporary json file")

	viper.BindPFlag("job-description", screenCmd.Flags().Lookup("jd"))
	viper.BindPFlag("export", screenCmd.Flags().Lookup("export"))
	viper.BindPFlag("output-dir", screenCmd.Flags().Lookup("output-dir"))
}

// screen is the main command for the cli.
func screen(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config != nil && len(args) > 0 {
		config.Resumes = args
	}

	if err := validateConfig(config); err != nil {
		logger.Fatal("validating the config",
			zap.Error(err),
			zap.String("hint", "pass --jd and at least one resume, or set job-description and resumes in resume-screener.yaml"),
		)
	}

	logger.Info("starting the resume-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jdUpload, err := session.LoadFile(config.JobDescription)
	if err != nil {
		logger.Fatal("loading the job description", zap.Error(err))
	}

	jd, err := session.JobDescriptionFromUpload(jdUpload)
	if err != nil {
		logger.Fatal("reading the job description",
			zap.Error(err),
			zap.Strings("supported", extract.Supported()),
		)
	}

	uploads := loadResumes(config.Resumes, logger)
	if len(uploads) == 0 {
		logger.Fatal("no resumes found", zap.Strings("patterns", config.Resumes))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating the gemini client",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file in the configuration file"),
		)
	}

	scorer := screening.NewScorer(generator, logger, config.AI.Gemini.MaxLogLength)
	sess := session.New(jd)

	logger.Info("screening resumes",
		zap.Stringer("session_id", sess.ID),
		zap.String("job_description", jd.Source()),
		zap.Int("count", len(uploads)),
	)

	if _, err := sess.Process(ctx, session.Deps{Scorer: scorer, Logger: logger}, uploads); err != nil {
		logger.Warn("screening stopped before all resumes were processed", zap.Error(err))
	}

	printer := report.NewPrinter(os.Stdout)
	printer.PrintRanking(sess.Ranked())
	printer.PrintNotices(sess.Notices)
	for _, hint := range serviceHints(sess.Notices) {
		logger.Warn("gemini requests failed", zap.String("hint", hint))
	}

	if config.Export != "" {
		if err := exportReport(config.Export, sess, logger); err != nil {
			logger.Error("exporting the report", zap.Error(err))
		}
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		if err := dumpSession(sess, logger); err != nil {
			logger.Error("dumping the session", zap.Error(err))
		}
	}

	if yes, _ := cmd.Flags().GetBool("yes"); yes || ctx.Err() != nil || len(sess.Candidates) == 0 {
		return
	}

	menu := &interactive{
		ctx:       ctx,
		config:    config,
		session:   sess,
		outreach:  screening.NewOutreachWriter(generator, logger),
		printer:   printer,
		logger:    logger,
		selectRun: runSelect,
	}
	if err := menu.loop(); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// serviceHints returns one hint per kind of Gemini failure found in the notices.
func serviceHints(notices []session.Notice) []string {
	hints := []struct {
		kind ai.ErrorKind
		text string
	}{
		{ai.KindUnauthorized, "the api key was rejected, check GEMINI_API_KEY or ai.gemini.api-key-file"},
		{ai.KindTimeout, "requests timed out, raise ai.timeout in the configuration file"},
		{ai.KindRateLimited, "quota exhausted, lower ai.gemini.requests-per-minute or wait before retrying"},
	}

	var result []string
	for _, h := range hints {
		for _, n := range notices {
			if ai.IsKind(n.Err, h.kind) {
				result = append(result, h.text)
				break
			}
		}
	}
	return result
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   []string{"GOOGLE_API_KEY"},
	})
	if err != nil {
		return nil, err
	}

	return gemini.NewGenerator(ctx, gemini.Options{
		APIKey:            apiKey,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.Gemini.MaxRetries,
		Temperature:       cfg.Gemini.Temperature,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		MaxLogLength:      cfg.Gemini.MaxLogLength,
		Logger:            log.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)),
	})
}

// loadResumes expands glob patterns and reads every matched file once, in order.
func loadResumes(patterns []string, log *zap.Logger) []session.Upload {
	seen := make(map[string]bool)
	uploads := make([]session.Upload, 0, len(patterns))

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			log.Warn("skipping invalid pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if len(matches) == 0 {
			log.Warn("no files match", zap.String("pattern", pattern))
			continue
		}

		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			if info, err := os.Stat(path); err == nil && info.IsDir() {
				continue
			}

			upload, err := session.LoadFile(path)
			if err != nil {
				log.Warn("skipping unreadable resume", zap.String("path", path), zap.Error(err))
				continue
			}
			uploads = append(uploads, upload)
		}
	}

	return uploads
}

func exportReport(path string, sess *session.Session, log *zap.Logger) error {
	if err := export.ToFile(path, sess.Ranked()); err != nil {
		return err
	}
	log.Info("exported the report", zap.String("filename", path), zap.Int("candidates", len(sess.Candidates)))
	return nil
}

func defaultExportPath(config *Config, now time.Time) string {
	if config.Export != "" {
		return config.Export
	}
	return filepath.Join(config.OutputDir, export.DefaultFilename(now))
}

func dumpSession(sess *session.Session, log *zap.Logger) error {
	filename, err := sess.DumpToTmpFile()
	if err != nil {
		return fmt.Errorf("dump session to file: %w", err)
	}
	log.Info("dumping session to file", zap.String("filename", filename))
	return nil
}

var errExit = errors.New("exit requested")
