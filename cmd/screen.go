package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai/gemini"
	"github.com/spigell/resume-screener/internal/documents"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/screening"
	"github.com/spigell/resume-screener/internal/secrets"
)

const (
	PromptShowRanked   = "Show ranked candidates"
	PromptShowTop      = "Show top candidate"
	PromptShowStatuses = "Show document statuses"
	PromptExport       = "Export CSV"
	PromptScreenAgain  = "Screen again"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowRanked, PromptShowTop, PromptShowStatuses, PromptExport, PromptScreenAgain, PromptExit},
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Score resumes against a job description and rank them",
	Run: func(cmd *cobra.Command, _ []string) {
		screen(cmd)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringP("job-description", "p", "", "job description file (pdf, txt, md or docx)")
	screenCmd.Flags().StringArrayP("resume", "r", nil, "resume file or directory with resumes. Can be repeated.")
	screenCmd.Flags().StringP("output", "o", "", "path of the CSV export (default is ranked_candidates.csv)")
	screenCmd.Flags().BoolP("yes", "y", false, "do not open the menu, export the ranking right away")
	screenCmd.Flags().Bool("abort-on-error", false, "stop the whole run on the first resume that cannot be screened")

	viper.BindPFlag("export.path", screenCmd.Flags().Lookup("output"))
}

// uploads are the paths the documents are read from. They are read again on every screening.
type uploads struct {
	jobDescription string
	resumes        []string
}

func (u uploads) load() (documents.Document, []documents.Document, error) {
	var jd documents.Document
	if path := strings.TrimSpace(u.jobDescription); path != "" {
		doc, err := documents.Load(path)
		if err != nil {
			return jd, nil, fmt.Errorf("job description: %w", err)
		}
		jd = doc
	}

	resumes, err := documents.Collect(u.resumes)
	if err != nil {
		return jd, nil, fmt.Errorf("resumes: %w", err)
	}

	return jd, resumes, nil
}

func screen(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if abort, _ := cmd.Flags().GetBool("abort-on-error"); abort {
		config.Screening.Policy = screening.PolicyAbort.String()
	}

	logger.Info("starting the resume-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building a scorer", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file, or use the keyword scorer"),
		)
	}

	pipeline, err := newPipeline(config, scorer, logger)
	if err != nil {
		logger.Fatal("building a pipeline", zap.Error(err))
	}

	jdPath, _ := cmd.Flags().GetString("job-description")
	resumePaths, _ := cmd.Flags().GetStringArray("resume")
	in := uploads{jobDescription: jdPath, resumes: resumePaths}

	session := screening.NewSession()
	rescreen := func() error {
		return runScreening(ctx, pipeline, session, in)
	}

	if err := rescreen(); err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	out := cmd.OutOrStdout()

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		if err := export(session, config, logger); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		logger.Info("current ranking", zap.Int("count", session.Latest().Ranked.Len()))

		if err := handleAction(action, out, session, config, logger, rescreen); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func runScreening(ctx context.Context, pipeline *screening.Pipeline, session *screening.Session, in uploads) error {
	jd, resumes, err := in.load()
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, jd, resumes)
	if err != nil {
		return err
	}

	session.Replace(result)
	return nil
}

func handleAction(action string, out io.Writer, session *screening.Session, config *Config, log *zap.Logger, rescreen func() error) error {
	result := session.Latest()
	if result == nil {
		return errors.New("no screening result in session")
	}

	switch action {
	case PromptShowRanked:
		return result.Ranked.Above(config.Screening.MinimumScore).WriteTable(out)
	case PromptShowTop:
		top, ok := result.Ranked.Top()
		if !ok {
			log.Info("no candidates to show", zap.Int("failed_documents", len(result.Failed())))
			return nil
		}
		_, err := fmt.Fprintf(out, "Top candidate: %s (score %d)\n%s\n", top.Name, top.Score, top.Reasoning)
		return err
	case PromptShowStatuses:
		return writeStatuses(out, result.Statuses)
	case PromptExport:
		return export(session, config, log)
	case PromptScreenAgain:
		if err := rescreen(); err != nil {
			return fmt.Errorf("screen again: %w", err)
		}
		log.Info("screening replaced", zap.String(logger.FieldRunID, session.Latest().RunID))
		return nil
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func export(session *screening.Session, config *Config, log *zap.Logger) error {
	result := session.Latest()
	if result == nil {
		return errors.New("no screening result in session")
	}

	path := strings.TrimSpace(config.Export.Path)
	if path == "" {
		filename, err := result.Ranked.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		log.Info("dumping result to file", zap.String("filename", filename))
		return nil
	}

	if err := result.Ranked.ToFile(path); err != nil {
		return fmt.Errorf("export results to %s: %w", path, err)
	}

	log.Info("exported ranking",
		zap.String("filename", path),
		zap.Int("count", result.Ranked.Len()),
		zap.String(logger.FieldRunID, result.RunID),
	)
	return nil
}

func writeStatuses(w io.Writer, statuses []screening.DocumentStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSTATE\tERROR")
	for _, status := range statuses {
		reason := ""
		if status.Err != nil {
			reason = status.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status.Name, status.Type, status.State, reason)
	}
	return tw.Flush()
}

func newPipeline(config *Config, scorer scoring.Scorer, log *zap.Logger) (*screening.Pipeline, error) {
	policy, err := screening.ParsePolicy(config.Screening.Policy)
	if err != nil {
		return nil, &ConfigurationError{Key: "screening.policy", Err: err}
	}

	return &screening.Pipeline{
		Extract: documents.Extract,
		Scorer:  scorer,
		Policy:  policy,
		Timeout: config.Screening.DocumentTimeout,
		Logger:  log,
	}, nil
}

// newScorer builds the configured scorer. The gemini credential is resolved
// here so a missing key stops the run before any document is read.
func newScorer(ctx context.Context, config *Config, log *zap.Logger) (scoring.Scorer, error) {
	switch config.Scorer {
	case "", "keyword":
		return scoring.NewKeyword(), nil
	case "gemini":
	default:
		return nil, &ConfigurationError{Key: "scorer", Err: fmt.Errorf("unsupported scorer %q", config.Scorer)}
	}

	var cfg GeminiConfig
	if config.AI != nil && config.AI.Gemini != nil {
		cfg = *config.AI.Gemini
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, &ConfigurationError{Key: "ai.gemini.api-key-file", Err: err}
	}

	genLogger := logger.WithScorerFields(log, "gemini", cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewMatcher(generator, cfg.MaxLogLength, logger.WithScorerFields(log, "gemini", generator.Model())), nil
}
