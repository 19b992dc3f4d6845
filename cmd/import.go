package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [csv file]",
	Short: "Import daily price bars from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  ImportBars,
}

func ImportBars(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	rows, err := repository.ReadPriceBarsCSV(f)
	if err != nil {
		return err
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
	if err := repo.PriceBarRepo.Upsert(context.Background(), rows); err != nil {
		return fmt.Errorf("failed to store price bars: %w", err)
	}
	appDep.log.Info("Imported price bars", logger.IntField("rows", len(rows)), logger.StringField("file", args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bars from %s\n", len(rows), args[0])
	return nil
}
