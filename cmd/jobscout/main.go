package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jobscout/internal/config"
	"jobscout/internal/dataset"
	"jobscout/internal/pipeline"
	"jobscout/internal/runstate"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "config.yml", "path to the YAML configuration")
	dataPath := flag.String("dataset", "jobs.csv", "path to the persisted dataset")
	statePath := flag.String("state", runstate.FileName, "path to the scheduler's run-state file")
	flag.Parse()

	progress := log.New(os.Stdout, "", 0)
	warn := log.New(os.Stderr, "", 0)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		warn.Printf("config load failed (%s): %v", *cfgPath, err)
		return 1
	}
	cfg, validation := config.NormalizeAndValidate(cfg)
	for _, w := range validation.Warnings {
		warn.Printf("config warning: %s", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			warn.Printf("config error: %s", e)
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &pipeline.Pipeline{
		Cfg:       cfg,
		Store:     dataset.NewStore(*dataPath),
		StatePath: *statePath,
		Progress:  progress,
		Warn:      warn,
	}
	sum, err := p.Run(ctx)
	if err != nil {
		warn.Printf("run failed: %v", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "[update] Summary: rows=%d new_unique_pairs=%d auto_rejected=%d pending_before=%d pending_after=%d\n",
		sum.TotalRows, sum.NewUniquePairs, sum.AutoRejected, sum.PendingBefore, sum.PendingAfter)
	return 0
}
