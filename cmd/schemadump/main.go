package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/hatlonely/rdbx/cfg"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/rdb/database"
	"github.com/hatlonely/rdbx/rdb/dumper"
	"github.com/hatlonely/rdbx/ref"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type Options struct {
	Logger *ref.TypeOptions `cfg:"logger"`

	// Provider 元数据来源，Namespace 为空时使用 rdb/database 包
	Provider ref.TypeOptions `cfg:"provider"`

	Dumper dumper.Options `cfg:"dumper"`

	// Output 输出文件，为空或 "-" 时写到标准输出
	Output string `cfg:"output"`
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var configFile string
	var output string
	var showVersion bool

	cmd := &cobra.Command{
		Use:           "schemadump",
		Short:         "Dump a live database schema as a declarative schema definition",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(stdout, "schemadump %s (commit %s, built %s, %s %s/%s)\n",
					Version, GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
				return nil
			}
			if configFile == "" {
				return errors.New("config file is required")
			}

			var options Options
			if err := cfg.Load(configFile, &options); err != nil {
				return errors.WithMessagef(err, "load config %s failed", configFile)
			}
			if cmd.Flags().Changed("output") {
				options.Output = output
			}
			return run(cmd.Context(), &options, stdout)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (yaml, json, toml or ini)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, \"-\" for stdout")
	cmd.Flags().BoolVar(&showVersion, "version", false, "Show version information and exit")
	return cmd
}

func run(ctx context.Context, options *Options, stdout io.Writer) error {
	if options.Provider.Type == "" {
		return errors.New("provider type is required")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return errors.WithMessage(err, "create logger failed")
	}
	l = l.With("command", "schemadump")

	provider, err := database.NewProviderWithOptions(&options.Provider)
	if err != nil {
		return err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	d, err := dumper.NewDumperWithOptions(provider, &options.Dumper)
	if err != nil {
		return err
	}
	d.SetLogger(l)

	w := stdout
	if options.Output != "" && options.Output != "-" {
		f, err := os.Create(options.Output)
		if err != nil {
			return errors.Wrapf(err, "create output %s failed", options.Output)
		}
		defer f.Close()
		w = f
	}

	result, err := d.Dump(ctx, w)
	if err != nil {
		return errors.WithMessage(err, "dump schema failed")
	}
	for _, failure := range result.Failures {
		l.WarnContext(ctx, "relation skipped", "relation", failure.Relation, "error", failure.Err.Error())
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
