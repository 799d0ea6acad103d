package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/launcher"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
)

func main() {
	skipCollect := flag.Bool("skip-collect", false, "Skip data collection")
	skipPreprocess := flag.Bool("skip-preprocess", false, "Skip preprocessing")
	skipTrain := flag.Bool("skip-train", false, "Skip model training")
	checkOnly := flag.Bool("check", false, "Only check the environment")
	noServe := flag.Bool("no-serve", false, "Run the pipeline without starting the servers")
	flag.Parse()

	env := app.Load("tourism-launcher")
	cfg, logger := env.Config, env.Logger

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	ctx := context.Background()

	serverPath, dashboardPath, err := launcher.Preflight(cfg)
	if err != nil {
		if *noServe {
			logger.Warn(ctx, "[LAUNCHER_CHECK] Serving binaries unavailable", logging.Fields{"error": err.Error()})
		} else {
			logger.Fatal(ctx, "[LAUNCHER_CHECK_ERROR] Environment check failed", logging.Fields{}, err)
		}
	}
	fmt.Printf("Environment OK: data=%s server=%s dashboard=%s\n", cfg.Paths.DataDir, serverPath, dashboardPath)
	if *checkOnly {
		return
	}

	repo, closeDB, err := env.OpenRepository(ctx)
	if err != nil {
		logger.Fatal(ctx, "[LAUNCHER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}

	pipeline := services.NewPipelineService(cfg, repo, logger, env.Metrics)
	result, err := pipeline.Run(ctx, map[string]bool{
		services.StageCollect:    *skipCollect,
		services.StagePreprocess: *skipPreprocess,
		services.StageTrain:      *skipTrain,
	})
	closeDB()
	if err != nil {
		// stage outputs are replaced atomically, so the previous ones are still served
		logger.Error(ctx, "[LAUNCHER_PIPELINE_ERROR] Pipeline failed, serving previous outputs", logging.Fields{}, err)
	} else {
		logger.Info(ctx, "[LAUNCHER_PIPELINE_COMPLETE] Pipeline finished", logging.Fields{
			"run_id":           result.RunID,
			"duration_seconds": result.Duration.Seconds(),
		})
	}
	if *noServe {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	fmt.Printf("API:       http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Dashboard: http://%s:%d\n", cfg.Dashboard.Host, cfg.Dashboard.Port)

	supervisor := launcher.NewSupervisor(cfg.Launcher.ShutdownGrace, os.Stdout, os.Stderr, logger)
	err = supervisor.Run(ctx, []launcher.Process{
		{Name: "server", Path: serverPath},
		{Name: "dashboard", Path: dashboardPath},
	}, signals)
	if err != nil {
		logger.Error(ctx, "[LAUNCHER_EXIT] Serving stopped unexpectedly", logging.Fields{}, err)
		os.Exit(1)
	}
	logger.Info(ctx, "[LAUNCHER_EXIT] All processes stopped", logging.Fields{})
}
