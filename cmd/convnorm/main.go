// Package main provides the convnorm CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/born-ml/born/backend/cpu"

	"github.com/born-ml/convnorm/internal/dataset"
	"github.com/born-ml/convnorm/internal/models"
	"github.com/born-ml/convnorm/internal/nn"
	"github.com/born-ml/convnorm/internal/verify"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "convnorm %s - normalization schemes for VGG16 and ResNet\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  verify     Check every architecture/normalization pair and the dataset loaders")
	fmt.Fprintln(w, "  summary    Describe a built network")
	fmt.Fprintln(w, "  stats      Compute per-channel statistics of a dataset's training split")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "\nRun 'convnorm <command> -h' for command flags.")
}

// run executes a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "verify":
		err = runVerify(ctx, args[1:], stdout)
	case "summary":
		err = runSummary(args[1:], stdout)
	case "stats":
		err = runStats(ctx, args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "convnorm %s\n", version)
	case "help", "-h", "-help", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("convnorm "+name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// dataOptions maps the shared data flags to dataset options.
func dataOptions(ctx context.Context, root string, download bool, limit int) []dataset.Option {
	opts := []dataset.Option{dataset.WithRoot(root), dataset.WithLimit(limit)}
	if download {
		opts = append(opts, dataset.WithDownload(ctx))
	}
	return opts
}

func runVerify(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("verify", stdout)
	dataDir := fs.String("data", dataset.DefaultRoot, "Directory holding the dataset files")
	download := fs.Bool("download", false, "Download missing dataset files")
	batch := fs.Int("batch", verify.DefaultBatchSize, "Batch size checked on the first training batch")
	skipData := fs.Bool("skip-data", false, "Only check the networks")
	archs := fs.String("arch", "VGG16,ResNet50", "Comma-separated architectures to check")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := verify.DefaultConfig()
	cfg.BatchSize = *batch
	cfg.SkipData = *skipData
	cfg.DataOptions = dataOptions(ctx, *dataDir, *download, 0)

	cfg.Architectures = cfg.Architectures[:0]
	for _, name := range strings.Split(*archs, ",") {
		arch, err := models.ParseArchitecture(name)
		if err != nil {
			return err
		}
		cfg.Architectures = append(cfg.Architectures, arch)
	}

	report := verify.Run(cpu.New(), cfg)
	fmt.Fprint(stdout, report.String())
	return report.Err()
}

func runSummary(args []string, stdout io.Writer) error {
	fs := newFlagSet("summary", stdout)
	arch := fs.String("arch", "ResNet50", "Architecture name")
	norm := fs.String("norm", "bn", "Normalization scheme ("+schemeList()+")")
	classes := fs.Int("classes", 10, "Number of output classes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	net, err := models.BuildByName(*arch, *classes, *norm, cpu.New())
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, models.Summarize(net).String())
	return nil
}

func schemeList() string {
	names := make([]string, 0, len(nn.Schemes()))
	for _, s := range nn.Schemes() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

func runStats(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("stats", stdout)
	name := fs.String("dataset", dataset.CIFAR10, "Dataset name ("+strings.Join(dataset.Names(), ", ")+")")
	dataDir := fs.String("data", dataset.DefaultRoot, "Directory holding the dataset files")
	download := fs.Bool("download", false, "Download missing dataset files")
	limit := fs.Int("limit", 0, "Max training samples to read (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	info, err := dataset.Lookup(*name)
	if err != nil {
		return err
	}
	train, _, err := dataset.Load(info.Name, dataOptions(ctx, *dataDir, *download, *limit)...)
	if err != nil {
		return err
	}

	st := dataset.ComputeStats(train)
	fmt.Fprintf(stdout, "%s: %d training samples\n", info.Name, train.Len())
	for c, channel := range []string{"R", "G", "B"} {
		fmt.Fprintf(stdout, "  %s  mean %.4f  std %.4f  (reference %.4f / %.4f)\n",
			channel, st.Mean[c], st.Std[c], info.Stats.Mean[c], info.Stats.Std[c])
	}
	return nil
}
