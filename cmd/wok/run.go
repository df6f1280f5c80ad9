package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wokengine/wok/api"
	"github.com/wokengine/wok/instance"
	"github.com/wokengine/wok/jobscheduler"
	"github.com/wokengine/wok/model"
	"github.com/wokengine/wok/portdata"
	"github.com/wokengine/wok/storage"
	"github.com/wokengine/wok/wconfig"
	"github.com/wokengine/wok/wlog"
)

var runCmd = &cobra.Command{
	Use:   "run <flow-file>",
	Short: "Initialize and run a workflow definition to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunCmd,
}

func init() {
	runCmd.Flags().String("config", "", "Path to an instance configuration file")
	runCmd.Flags().String("listen", "", "Address to serve the control surface and metrics on, e.g. :8080")
	runCmd.Flags().Int("concurrency", 4, "Maximum number of concurrently running tasks")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flowPath := args[0]
	configPath, _ := cmd.Flags().GetString("config")
	listenAddr, _ := cmd.Flags().GetString("listen")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	cfg, err := wconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.WorkPath == "" {
		cfg.WorkPath = "."
	}

	outputDir := filepath.Join(cfg.WorkPath, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create task output dir: %w", err)
	}
	wlog.SetTaskLogDir(outputDir)

	loader := model.NewYAMLLoader(".")
	dataStore, err := portdata.NewFileStore(cfg.WorkPath)
	if err != nil {
		return fmt.Errorf("open port data store: %w", err)
	}
	taskStore, err := storage.NewBoltStore(cfg.WorkPath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}

	sched := jobscheduler.NewLocalScheduler(wlog.Logger, concurrency)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start job scheduler: %w", err)
	}

	inst := instance.New(cfg, loader, dataStore, taskStore, sched, wlog.Logger)

	def, err := loader.Load(ctx, flowPath)
	if err != nil {
		return fmt.Errorf("load flow: %w", err)
	}
	if err := inst.Initialize(ctx, def); err != nil {
		return fmt.Errorf("initialize instance: %w", err)
	}

	if listenAddr != "" {
		srv := api.NewServer(inst, wlog.Logger)
		go func() {
			if err := srv.Start(listenAddr); err != nil && err != http.ErrServerClosed {
				wlog.Errorf("control surface exited", err)
			}
		}()
	}

	wlog.Info("starting instance run")
	if err := inst.Start(ctx, true); err != nil {
		return fmt.Errorf("start instance: %w", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 24*time.Hour)
	defer waitCancel()
	if err := inst.Wait(waitCtx); err != nil {
		return fmt.Errorf("wait for instance: %w", err)
	}

	fmt.Printf("final state: %s\n", inst.State())
	return inst.Exit(context.Background())
}
