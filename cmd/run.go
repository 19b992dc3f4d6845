package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/delivery/console"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/internal/service"
	"golang-backtest/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	runRequestPath string
	runBarsPath    string
	runOutputJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest from a JSON request file",
	Long: `Run a single backtest from a JSON request file.

With --bars the prices are read from a CSV file and nothing is stored.
Without it the run goes through the database like an API request.`,
	RunE: RunBacktest,
}

func init() {
	runCmd.Flags().StringVarP(&runRequestPath, "request", "r", "", "path to the JSON request")
	runCmd.Flags().StringVarP(&runBarsPath, "bars", "b", "", "CSV file with symbol,date,open,high,low,close,volume rows")
	runCmd.Flags().BoolVar(&runOutputJSON, "json", false, "print the full result as JSON")
	_ = runCmd.MarkFlagRequired("request")
}

func RunBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := readRequestFile(runRequestPath)
	if err != nil {
		return err
	}

	if runBarsPath != "" {
		return runOffline(ctx, cmd, req)
	}

	appDep, err := NewAppDependency()
	if err != nil {
		return fmt.Errorf("failed to create app dependency: %w", err)
	}
	defer func() {
		if err := appDep.Close(); err != nil {
			log.Printf("Failed to close app dependency: %v", err)
		}
	}()

	repo := repository.NewRepository(appDep.cfg, appDep.cache, appDep.db.DB, appDep.log)
	services := service.NewService(appDep.cfg, appDep.log, repo)

	outcome, err := services.BacktestService.Run(ctx, req)
	if err != nil && (outcome == nil || outcome.Result == nil) {
		return err
	}
	if outcome.Reused {
		fmt.Fprintf(cmd.OutOrStdout(), "Reused completed run #%d (%s)\n", outcome.RunID, outcome.Hash)
		return nil
	}
	if printErr := printResult(cmd, outcome.RunID, outcome.Result); printErr != nil {
		return printErr
	}
	return err
}

func runOffline(ctx context.Context, cmd *cobra.Command, req backtest.Request) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appLog, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = appLog.Sync() }()

	f, err := os.Open(runBarsPath)
	if err != nil {
		return fmt.Errorf("failed to open bars file: %w", err)
	}
	defer f.Close()

	rows, err := repository.ReadPriceBarsCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read bars file: %w", err)
	}

	engine := backtest.NewEngine(repository.NewStaticSource(rows), appLog, backtest.WithLoadConcurrency(cfg.Backtest.LoadConcurrency))
	result, err := engine.Run(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd, 0, result)
}

func readRequestFile(path string) (backtest.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("failed to read request file: %w", err)
	}
	var body dto.BacktestRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return backtest.Request{}, backtest.NewValidationError("decode request", err)
	}
	return body.ToEngineRequest()
}

func printResult(cmd *cobra.Command, runID uint, result *backtest.Result) error {
	if runOutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return console.PrintResult(cmd.OutOrStdout(), runID, result)
}
