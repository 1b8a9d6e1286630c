// claimflow: инструмент командной строки для status API.
//
// Использование:
//
//	claimflow [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	flow        Каталог flows и states
//	state       Счётчики и застрявшие сущности
//	entity      Текущий state и история сущности
//	import-log  Запуски шагов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Claimflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("CLAIMFLOW_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd := &cobra.Command{
		Use:           "claimflow",
		Short:         "Claimflow CLI: inspect benefit claim pipeline state",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFlowCmd(clientFn, outputFn),
		cli.NewStateCmd(clientFn, outputFn),
		cli.NewEntityCmd(clientFn, outputFn),
		cli.NewImportLogCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
