// Package main provides the rbm command-line tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/config"
	"github.com/born-ml/rbm/internal/dataset"
	"github.com/born-ml/rbm/internal/parallel"
	"github.com/born-ml/rbm/internal/rbm"
	"github.com/born-ml/rbm/internal/trainer"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("rbm %s\n", version)
	case "train":
		err = runTrain(os.Args[2:])
	case "reconstruct":
		err = runReconstruct(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "rbm %s - binary RBM training with MCMC, mean-field and TAP estimators\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                          Show version")
	fmt.Fprintln(w, "  train [-config file] [flags]     Train a model")
	fmt.Fprintln(w, "  reconstruct -model file -data f  Print mean-field reconstructions")
}

// parseTrainFlags returns the config path and the overrides given on the
// command line. Only flags that were actually set override the seed, so
// -seed 0 is a valid choice.
func parseTrainFlags(args []string) (string, config.Overrides, error) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	dataPath := fs.String("data", "", "Override data path")
	outDir := fs.String("out", "", "Override output directory")
	method := fs.String("method", "", "Override estimator: mcmc, meanfield or tap")
	hidden := fs.Int("hidden", 0, "Override number of hidden units")
	epochs := fs.Int("epochs", 0, "Override number of epochs")
	steps := fs.Int("steps", 0, "Override chain / fixed-point steps")
	batchSize := fs.Int("batch-size", 0, "Override batch size")
	lr := fs.Float64("lr", 0, "Override learning rate")
	seed := fs.Int64("seed", 0, "Override PRNG seed (negative = time based)")
	if err := fs.Parse(args); err != nil {
		return "", config.Overrides{}, err
	}

	o := config.Overrides{
		DataPath:     *dataPath,
		OutputDir:    *outDir,
		Method:       *method,
		Hidden:       *hidden,
		Epochs:       *epochs,
		Steps:        *steps,
		BatchSize:    *batchSize,
		LearningRate: *lr,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.Seed = seed
		}
	})
	return *cfgPath, o, nil
}

func runTrain(args []string) error {
	cfgPath, overrides, err := parseTrainFlags(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if cfgPath != "" {
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := loadData(cfg.Data)
	if err != nil {
		return err
	}
	rows, cols := data.Dims()
	log.Printf("data=%s rows=%d cols=%d", cfg.Data.Path, rows, cols)

	rng := rbm.NewRand(cfg.Train.Seed)
	model, err := rbm.NewModel(cfg.ModelConfig(cols), rng)
	if err != nil {
		return err
	}
	model.SetParallelism(parallel.WithWorkers(cfg.Train.Workers))
	onsager, err := cfg.Seed()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	est, err := trainer.NewEstimator(cfg.Train.Method, cfg.Train.Steps, onsager, rng)
	if err != nil {
		return err
	}

	run := trainer.RunConfig{
		Epochs:      cfg.Train.Epochs,
		Estimator:   est,
		OnNonFinite: policy,
		OutputDir:   cfg.Output.Dir,
		Checkpoint:  cfg.Output.Checkpoint,
		Plots:       cfg.Output.Plots,
	}
	if cfg.Output.Likelihood {
		run.Likelihood = trainer.NewLikelihood(cfg.Train.Method, cfg.Train.Steps)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, err := trainer.Run(ctx, model, data, run)
	if err != nil {
		return err
	}
	if best, ok := history.Best(); ok {
		log.Printf("best epoch=%d ll=%.4f", best.Epoch, best.LogLikelihood)
	}
	return nil
}

func runReconstruct(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reconstruct", flag.ExitOnError)
	modelPath := fs.String("model", "", "Path to .rbm model")
	dataPath := fs.String("data", "", "Path to CSV data")
	skipHeader := fs.Bool("skip-header", false, "Skip the first CSV row")
	steps := fs.Int("steps", 1, "Mean-field steps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" || *dataPath == "" {
		return fmt.Errorf("both -model and -data are required")
	}

	model, header, err := rbm.LoadFile(*modelPath)
	if err != nil {
		return err
	}
	if cp := header.Checkpoint; cp != nil {
		log.Printf("model=%s run=%s method=%s epoch=%d", *modelPath, cp.RunID, cp.Method, cp.Epoch)
	}
	data, err := dataset.LoadCSVFile(*dataPath, dataset.CSVOptions{SkipHeader: *skipHeader})
	if err != nil {
		return err
	}

	v, _, err := model.RunMeanField(data, *steps)
	if err != nil {
		return err
	}
	mse, err := model.ReconstructionError(data)
	if err != nil {
		return err
	}
	log.Printf("rows=%d recon_mse=%.6f", v.RawMatrix().Rows, mse)
	fmt.Fprintf(out, "%.4g\n", mat.Formatted(v, mat.Squeeze()))
	return nil
}

func loadData(d config.Data) (*mat.Dense, error) {
	var (
		x   *mat.Dense
		err error
	)
	switch d.Format {
	case config.FormatIDX:
		x, err = dataset.LoadIDXImagesFile(d.Path, d.MaxRows)
	default:
		x, err = dataset.LoadCSVFile(d.Path, dataset.CSVOptions{
			SkipHeader:  d.SkipHeader,
			SkipColumns: d.SkipCols,
			MaxRows:     d.MaxRows,
		})
	}
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidateBinary(x); err != nil {
		x = dataset.Binarize(x, d.Threshold)
	}
	return x, nil
}
