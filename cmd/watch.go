package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal"
	tt "github.com/gnolang/tverify/internal/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-verify files whenever they change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize verification engine", zap.Error(err))
		}

		watcher, err := internal.NewWatcher(engine, args, func(filename string, reports []tt.Report) {
			printReports(logger, os.Stdout, reports, printOptions{proved: showProved})
		})
		if err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}

		fmt.Printf("Watching %s (press Ctrl+C to stop)\n", strings.Join(args, ", "))
		if err := watcher.Watch(ctx); err != nil {
			logger.Error("Watch stopped", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&showProved, "proved", false, "Also print the obligations that were proved")
}
