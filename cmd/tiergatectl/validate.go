package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tiergate/internal/alert"
	"tiergate/internal/audit"
	"tiergate/internal/collaborators/local"
	pipeline "tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/override"
	"tiergate/internal/pipeline/service"
	"tiergate/internal/pipeline/stages"
)

// errRejected makes --fail-on-reject exit non-zero after printing the result.
var errRejected = errors.New("action rejected")

// actionFile is the on-disk form of a proposed action. JSON files parse too.
type actionFile struct {
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
	Initiator   string `yaml:"initiator"`
	Priority    string `yaml:"priority"`
	Scope       struct {
		Geographic string `yaml:"geographic"`
		Temporal   string `yaml:"temporal"`
	} `yaml:"scope"`
	Resources struct {
		Inputs  []string `yaml:"inputs"`
		Outputs []string `yaml:"outputs"`
	} `yaml:"resources"`
	Context map[string]any `yaml:"context"`
	Profile struct {
		ID       string `yaml:"id"`
		Timezone string `yaml:"timezone"`
	} `yaml:"profile"`
	Options map[string]any `yaml:"options"`
}

func loadActionFile(path string) (*models.ProposedAction, models.EvaluationOptions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, models.EvaluationOptions{}, fmt.Errorf("read action file: %w", err)
	}
	var f actionFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, models.EvaluationOptions{}, fmt.Errorf("parse action file %s: %w", path, err)
	}

	action := &models.ProposedAction{
		Kind:         f.Kind,
		Description:  f.Description,
		Initiator:    f.Initiator,
		Priority:     models.Priority(f.Priority),
		Scope:        models.Scope{Geographic: f.Scope.Geographic, Temporal: f.Scope.Temporal},
		ResourceFlow: models.ResourceFlow{Inputs: f.Resources.Inputs, Outputs: f.Resources.Outputs},
		Context:      f.Context,
	}
	opts := models.EvaluationOptions{
		UserProfile: models.UserProfile{ID: f.Profile.ID, Timezone: f.Profile.Timezone},
		Extra:       f.Options,
	}
	return action, opts, nil
}

type validateFlags struct {
	file            string
	minDeliberation time.Duration
	checkWindows    bool
	halt            bool
	failOnReject    bool
}

func newValidateCmd(log func() *slog.Logger) *cobra.Command {
	var flags validateFlags
	cmd := &cobra.Command{
		Use:   "validate -f action.yaml",
		Short: "Dry-run an action through the pipeline with local collaborators",
		Long: `Evaluates a proposed action read from a YAML or JSON file through all three
stages using the deterministic local collaborators, and prints the aggregate
result as JSON. Nothing is persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, flags, log())
		},
	}
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "action file (YAML or JSON)")
	cmd.Flags().DurationVar(&flags.minDeliberation, "min-deliberation", pipeline.Default().Consent.MinDeliberation,
		"consent cool-down; set 0 for a fast dry-run")
	cmd.Flags().BoolVar(&flags.checkWindows, "check-windows", false, "defer consent during local quiet hours")
	cmd.Flags().BoolVar(&flags.halt, "halt-on-failure", false, "skip remaining stages after a failure")
	cmd.Flags().BoolVar(&flags.failOnReject, "fail-on-reject", false, "exit non-zero when the action is rejected")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runValidate(cmd *cobra.Command, flags validateFlags, log *slog.Logger) error {
	action, opts, err := loadActionFile(flags.file)
	if err != nil {
		return err
	}

	cfg := pipeline.Default()
	cfg.Consent.MinDeliberation = flags.minDeliberation
	cfg.Consent.CheckVulnerability = flags.checkWindows
	cfg.HaltOnFirstFailure = flags.halt

	svc := service.New(service.Evaluators{
		Biocentric: stages.NewBiocentric(local.Scorer{}, cfg.Biocentric, stages.WithLogger(log)),
		Consent: stages.NewConsent(
			local.ConsentRequester{DeliberationSeconds: flags.minDeliberation.Seconds()},
			local.DefaultQuietHours, cfg.Consent, stages.WithLogger(log)),
		Intergenerational: stages.NewIntergenerational(local.Projector{}, cfg.Intergenerational, stages.WithLogger(log)),
	}, audit.NewInMemoryStore(), cfg,
		service.WithLogger(log),
		service.WithOverrides(override.New(cfg.Override, alert.NewLogSink(log))),
	)

	result, err := svc.Validate(ctxOrBackground(cmd), action, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if flags.failOnReject && result.Status == models.StatusRejected {
		return errRejected
	}
	return nil
}

// ctxOrBackground guards commands executed without ExecuteContext.
func ctxOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
