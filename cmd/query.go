package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal"
	"github.com/gnolang/tverify/internal/scope"
	"github.com/gnolang/tverify/internal/theorem"
)

var funcName string

// queryCmd prints the solver queries of a file without running the solver.
var queryCmd = &cobra.Command{
	Use:   "query [file]",
	Short: "Print the SMT-LIB queries generated for a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := newEngine(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize verification engine", zap.Error(err))
		}
		if err := printQueries(engine, args[0], funcName, os.Stdout); err != nil {
			logger.Error("Error generating queries", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	queryCmd.Flags().StringVar(&funcName, "func", "", "Only print the queries of this function (use T.M for methods)")
}

func printQueries(engine *internal.Engine, filename, function string, w io.Writer) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	unit, err := engine.Prepare(filename, source)
	if err != nil {
		return err
	}

	theorems := unit.Theorems
	if function != "" {
		node := unit.Root.Find(func(n *scope.Node) bool {
			return n.Kind() == scope.Function && n.Name() == function
		})
		if node == nil {
			return fmt.Errorf("no function %s in %s", function, filename)
		}
		theorems = node.Theorems(unit.Config)
	}

	for _, th := range theorems {
		if err := printQuery(w, th); err != nil {
			return err
		}
	}
	return nil
}

func printQuery(w io.Writer, th *theorem.Theorem) error {
	query, err := th.Encode()
	if err != nil {
		fmt.Fprintf(w, "; %s\n; cannot encode: %v\n\n", th.Description(), err)
		return nil
	}
	_, err = fmt.Fprintf(w, "; %s\n%s\n", th.Description(), query)
	return err
}
