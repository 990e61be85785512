package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/config"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/fetch"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/manifest"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/report"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/reporter"
)

// set by the linker
var version = "0.0.0-dev"

type rootArgs struct {
	release          string
	platformRelease  string
	compareWith      string
	format           string
	output           string
	configPath       string
	granular         bool
	noGranular       bool
	showVariants     bool
	noShowVariants   bool
	inspectPlatforms bool
	logLevel         string
}

// newFetcher is replaced in tests.
var newFetcher = func(cfg *config.Config) (reporter.Fetcher, error) {
	return fetch.NewClient(cfg.ClientOptions()...)
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var args rootArgs

	cmd := &cobra.Command{
		Use:           "rhoai-reporter",
		Short:         "Report the container images shipped with a RHOAI release",
		Long:          "Fetches the OLM catalog and disconnected install helper of a Red Hat OpenShift AI release, classifies and groups every image, and renders a markdown or JSON report.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := log.ParseLevel(args.logLevel)
			if err != nil {
				return errors.Wrap(err, "invalid --log-level")
			}
			log.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, &args, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&args.release, "rhoai-version", "", "RHOAI release, e.g. 2.25 (default: latest)")
	flags.StringVar(&args.platformRelease, "ocp-version", "", "OpenShift release, e.g. 4.20 (default: latest for the RHOAI release)")
	flags.StringVar(&args.compareWith, "compare-with", "", "RHOAI release to compare against")
	flags.StringVar(&args.format, "format", "", "Output format: markdown or json (default from config)")
	flags.StringVarP(&args.output, "output", "o", "", "Write the report to a file instead of stdout")
	flags.BoolVar(&args.granular, "granular", true, "Group images into fine-grained components")
	flags.BoolVar(&args.noGranular, "no-granular", false, "Use the coarse legacy component table")
	flags.BoolVar(&args.showVariants, "show-variants", true, "Include the image variant analysis")
	flags.BoolVar(&args.noShowVariants, "no-show-variants", false, "Leave out the image variant analysis")
	flags.BoolVar(&args.inspectPlatforms, "inspect-platforms", false, "Query registries for the platforms of each image variant")
	cmd.PersistentFlags().StringVar(&args.configPath, "config", config.DefaultPath, "Path to the config file")
	cmd.PersistentFlags().StringVar(&args.logLevel, "log-level", log.InfoLevel.String(), "Log level: debug, info, warn, error")

	cmd.AddCommand(newVersionCmd(stdout))
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(stdout, "rhoai-reporter version %s\n", version)
		},
	}
}

func run(cmd *cobra.Command, args *rootArgs, stdout io.Writer) error {
	cfg, err := config.Load(args.configPath)
	if err != nil {
		return err
	}

	format := cfg.Defaults.OutputFormat
	if cmd.Flags().Changed("format") {
		format = args.format
	}
	if format != report.FormatMarkdown && format != report.FormatJSON {
		return &report.ErrorUnsupportedFormat{Format: format}
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	r := reporter.New(fetcher, reporter.WithInspector(manifest.Inspector{}), reporter.WithStdout(stdout))
	err = r.Run(cmd.Context(), reporter.Options{
		Release:          args.release,
		PlatformRelease:  args.platformRelease,
		CompareWith:      args.compareWith,
		Format:           format,
		Output:           args.output,
		Granular:         args.granular && !args.noGranular,
		ShowVariants:     args.showVariants && !args.noShowVariants,
		IncludeSecurity:  cfg.Defaults.IncludeSecurityAnalysis,
		InspectPlatforms: args.inspectPlatforms,
	})
	if errors.Is(err, reporter.ErrNoImages) {
		log.Warn(err)
		return nil
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
