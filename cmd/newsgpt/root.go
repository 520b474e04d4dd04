package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/fetch"
	"research-workers/internal/research/pipeline"
)

// Responder answers one prompt.
type Responder interface {
	GetResponse(ctx context.Context, prompt string) (string, error)
}

// builder turns a validated config into a Responder.
type builder func(cfg *config.Config, log logger.Logger) (Responder, error)

func defaultBuilder(cfg *config.Config, log logger.Logger) (Responder, error) {
	return pipeline.NewFromConfig(cfg, pipeline.Dependencies{Logger: log})
}

type rootOptions struct {
	configPath string
	timeout    time.Duration
	extractor  string
	verbose    bool
}

// errReported marks failures already printed for the user.
var errReported = stderrors.New("reported")

func newRootCmd(build builder) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newsgpt",
		Short:         "Answer questions with fresh search results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is ./configs/config.yaml)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "overall deadline per question (0 = none)")
	root.PersistentFlags().StringVar(&opts.extractor, "extractor", "", "page text extractor: "+strings.Join(fetch.ExtractorNames(), ", "))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(askCmd(opts, build), chatCmd(opts, build), versionCmd())
	return root
}

// setup loads the config and builds the pipeline. Problems are printed and
// reported as errReported.
func setup(cmd *cobra.Command, opts *rootOptions, build builder) (Responder, error) {
	out := cmd.OutOrStdout()

	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(out, displayError(configError(err)))
		return nil, errReported
	}

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		fmt.Fprintf(out, "Please provide the following setting(s): %s\n", strings.Join(missing, ", "))
		return nil, errReported
	}

	if opts.extractor != "" {
		if _, err := fetch.ExtractorByName(opts.extractor); err != nil {
			fmt.Fprintln(out, displayError(configError(err)))
			return nil, errReported
		}
		cfg.Research.Extractor = opts.extractor
	}

	log := logger.NewNoOpLogger()
	if opts.verbose {
		log = logger.NewZapAdapter(logger.New("debug", "console"))
	}

	r, err := build(cfg, log)
	if err != nil {
		fmt.Fprintln(out, displayError(configError(err)))
		return nil, errReported
	}
	return r, nil
}

func (o *rootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}

func askCmd(opts *rootOptions, build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd, opts, build)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			answer, err := r.GetResponse(ctx, strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), displayError(err))
				return errReported
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsgpt %s\n", version)
		},
	}
}
