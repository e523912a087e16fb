// Package main provides the paraviewer command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PacificBiosciences/Paraviewer/internal/region"
	"github.com/PacificBiosciences/Paraviewer/internal/viewer"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks command-line misuse, reported with exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(os.Stderr, "Run 'paraviewer --help' for usage.\n")
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var opts viewer.Options
	var verbose bool

	cmd := &cobra.Command{
		Use:   "paraviewer",
		Short: "Browse Paraphase and PureTarget results in IGV",
		Long: `Paraviewer turns Paraphase and PureTarget Carrier Panel variant-calling
output into a browsable review: per-region alignment slices, IGV session
files, rendered snapshot images, and an index page tying them together.`,
		Example: `  # review paraphase output against GRCh38
  paraviewer --genome hg38 --paraphase-dir paraphase_results/ --outdir review/

  # carrier panel output with trio reconciliation
  paraviewer --genome hg38 --ptcp-dir ptcp_results/ --pedigree family.ped --outdir review/`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cmd.Flags()); err != nil {
				return err
			}
			if err := validate(&opts); err != nil {
				return err
			}

			logger, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			defer logger.Sync()

			fmt.Fprintf(os.Stderr, "\nParaviewer v%s\n", version)

			if err := checkTools(opts.NoIGVRerun); err != nil {
				return err
			}

			opts.Version = version
			opts.Logger = logger
			return viewer.Run(cmd.Context(), opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.Outdir, "outdir", "", "Path to output directory - should not already exist")
	flags.StringVar(&opts.ParaphaseDir, "paraphase-dir", "", "Path to paraphase result directory")
	flags.StringVar(&opts.PureTargetDir, "ptcp-dir", "", "Path to PureTarget Carrier Panel result directory")
	flags.BoolVar(&opts.Clobber, "clobber", false, "Overwrite output directory if it already exists")
	flags.StringVar(&opts.Genome, "genome", "", "Desired genome build. Choose between GRCh37/HG19 (hg19) and GRCh38/HG38 (hg38)")
	flags.StringVar(&opts.PedigreePath, "pedigree", "", "Path to GATK-format PED file containing pedigree information - unrepresented samples will be excluded")
	flags.StringSliceVar(&opts.IncludeRegions, "include-only-regions", nil, "Region names to include. Regions not specified will be excluded.")
	flags.StringSliceVar(&opts.ExcludeRegions, "exclude-regions", nil, "Region names to exclude")
	flags.StringSliceVar(&opts.IncludeSamples, "include-only-samples", nil, "Sample IDs to include. Samples not specified will be excluded.")
	flags.StringSliceVar(&opts.ExcludeSamples, "exclude-samples", nil, "Sample IDs to exclude")
	flags.IntVar(&opts.MaxReadsPerHaplotype, "max-reads-per-haplotype", viewer.DefaultMaxReadsPerHaplotype, "Maximum number of reads to show per haplotype")
	flags.BoolVar(&verbose, "verbose", false, "Print verbose output for debugging purposes")
	flags.BoolVar(&opts.NoIGVRerun, "no-igv-rerun", false, "")
	flags.MarkHidden("no-igv-rerun")

	cmd.AddCommand(newConfigCmd())

	return cmd
}

// readConfigFile loads ~/.paraviewer.yaml into viper when present.
func readConfigFile() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(home)
	viper.SetConfigName(".paraviewer")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// initConfig merges ~/.paraviewer.yaml and PARAVIEWER_* environment
// variables into flags the user left unset on the command line.
func initConfig(flags *pflag.FlagSet) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	viper.SetEnvPrefix("PARAVIEWER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || !viper.IsSet(f.Name) {
			return
		}
		value := viper.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(viper.GetStringSlice(f.Name), ",")
		}
		if err := flags.Set(f.Name, value); err != nil {
			bindErr = usageError{fmt.Errorf("config value for %s: %w", f.Name, err)}
		}
	})
	return bindErr
}

// validate applies the checks argparse-style CLIs do per flag: the
// required flags are set, paths exist, and choices are legal. It runs
// after initConfig so config-file values count.
func validate(opts *viewer.Options) error {
	if opts.Outdir == "" {
		return usageError{errors.New("--outdir is required")}
	}
	if opts.Genome == "" {
		return usageError{errors.New("--genome is required")}
	}
	if opts.Genome != region.GenomeHG19 && opts.Genome != region.GenomeHG38 {
		return usageError{fmt.Errorf("invalid genome build %q: choose hg19 or hg38", opts.Genome)}
	}

	switch {
	case opts.ParaphaseDir == "" && opts.PureTargetDir == "":
		return usageError{errors.New("either --paraphase-dir or --ptcp-dir must be specified")}
	case opts.ParaphaseDir != "" && opts.PureTargetDir != "":
		return usageError{errors.New("--paraphase-dir and --ptcp-dir are mutually exclusive: specify only one or the other")}
	}
	inputDir := opts.ParaphaseDir
	if inputDir == "" {
		inputDir = opts.PureTargetDir
	}
	info, err := os.Stat(inputDir)
	if err != nil {
		return usageError{fmt.Errorf("directory %s does not exist", inputDir)}
	}
	if !info.IsDir() {
		return usageError{fmt.Errorf("%s is not a directory", inputDir)}
	}

	if parent := filepath.Dir(opts.Outdir); parent != "." {
		if _, err := os.Stat(parent); err != nil {
			return usageError{fmt.Errorf("parent directory %s does not exist", parent)}
		}
	}
	if opts.PedigreePath != "" {
		if _, err := os.Stat(opts.PedigreePath); err != nil {
			return usageError{fmt.Errorf("file %s does not exist", opts.PedigreePath)}
		}
	}
	if opts.MaxReadsPerHaplotype <= 0 {
		return usageError{errors.New("--max-reads-per-haplotype must be positive")}
	}
	return nil
}

// checkTools verifies the external renderers are reachable before any
// output is written. Skipped when rendering itself is skipped.
func checkTools(skipRender bool) error {
	if skipRender {
		return nil
	}
	if _, err := exec.LookPath("igv"); err != nil {
		return errors.New("IGV not found. Paraviewer requires that you install IGV via conda/mamba, e.g.\n`mamba install -c bioconda igv`")
	}
	if runtime.GOOS == "linux" {
		if _, err := exec.LookPath("Xvfb"); err != nil {
			return errors.New("Xvfb not found. Paraviewer on linux requires Xvfb.")
		}
	}
	return nil
}

// newLogger builds the console logger: Info level normally, Debug with
// --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}
