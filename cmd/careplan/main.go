package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/careplan-backend/internal/client"
	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/pipeline"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/platform/shutdown"
	"github.com/yungbote/careplan-backend/internal/report"
)

type attachments []string

func (a *attachments) String() string     { return strings.Join(*a, ",") }
func (a *attachments) Set(v string) error { *a = append(*a, v); return nil }

func main() {
	_ = godotenv.Load()

	var (
		gatewayURL  = flag.String("gateway", envOr("CAREPLAN_GATEWAY_URL", "http://localhost:3001"), "care plan gateway base URL")
		profilePath = flag.String("profile", "", "client profile JSON or YAML file (default: built-in sample client)")
		promptsPath = flag.String("prompts", "", "prompt set JSON or YAML file; blank prompts use the defaults")
		outDir      = flag.String("out", "", "directory to write the text report into")
		evidence    = flag.Bool("evidence", false, "append PubMed / ClinicalTrials.gov evidence to the report")
		logMode     = flag.String("log", envOr("LOG_MODE", "development"), "log mode (development|production)")
		docs        attachments
	)
	flag.Var(&docs, "attach", "attached document name (repeatable)")
	flag.Parse()

	log, err := logger.New(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*gatewayURL, *profilePath, *promptsPath, *outDir, *evidence, docs, log); err != nil {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell bad input and throttling apart from upstream failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, apierr.ErrValidation):
		return 2
	case errors.Is(err, apierr.ErrThrottled):
		return 3
	case errors.Is(err, apierr.ErrTimeout):
		return 4
	case errors.Is(err, apierr.ErrMalformed):
		return 5
	case errors.Is(err, apierr.ErrUnhandled):
		return 6
	default:
		return 1
	}
}

func run(gatewayURL, profilePath, promptsPath, outDir string, withEvidence bool, docs []string, log *logger.Logger) error {
	profile := domain.SampleClientProfile()
	if profilePath != "" {
		if err := readInput(profilePath, &profile); err != nil {
			return fmt.Errorf("read profile: %w", err)
		}
	}
	var prompts domain.PromptSet
	if promptsPath != "" {
		if err := readInput(promptsPath, &prompts); err != nil {
			return fmt.Errorf("read prompts: %w", err)
		}
	}

	c, err := client.New(client.Options{BaseURL: gatewayURL, Log: log})
	if err != nil {
		return err
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	p := newPresenter(os.Stdout)
	orch := pipeline.New(c, pipeline.WithObserver(p.Observe), pipeline.WithLogger(log))

	res, err := orch.Run(ctx, pipeline.Input{Profile: profile, Prompts: prompts, Attachments: docs})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("cancelled")
		}
		return err
	}
	p.Result(res)

	if outDir == "" {
		return nil
	}
	rep := report.Report{
		ClientName: profile.Name,
		Generated:  time.Now(),
		Plan:       res.Enhanced,
		Scorecard:  &res.Scorecard,
	}
	if withEvidence {
		f, err := c.Research(ctx, profile.Conditions())
		if err != nil {
			log.Warn("evidence lookup failed; exporting without it", "error", err)
		} else {
			rep.Evidence = &f
		}
	}
	path := filepath.Join(outDir, report.FileName(profile.Name, rep.Generated))
	if err := os.WriteFile(path, []byte(report.Render(rep)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("\nReport written to %s\n", path)
	return nil
}

// readInput decodes a .yaml/.yml file as YAML and anything else as JSON.
func readInput(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, out)
	default:
		return json.Unmarshal(raw, out)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
