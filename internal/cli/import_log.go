package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewImportLogCmd создаёт группу команд по запускам шагов.
func NewImportLogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import-log",
		Aliases: []string{"runs"},
		Short:   "Inspect step runs",
	}

	cmd.AddCommand(
		newImportLogListCmd(clientFn, outputFn),
		newImportLogShowCmd(clientFn, outputFn),
	)

	return cmd
}

func importLogRow(l ImportLogResponse) []string {
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.Source,
		l.Status,
		l.StartedAt,
		strconv.FormatInt(l.DurationMS, 10),
	}
}

var importLogHeaders = []string{"ID", "SOURCE", "STATUS", "STARTED", "DURATION_MS"}

func newImportLogListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent step runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := clientFn().ListImportLogs(source, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(logs))
			for i, l := range logs {
				rows[i] = importLogRow(l)
			}

			outputFn().Print(importLogHeaders, rows, logs)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "step", "", "Filter by step name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max number of runs")

	return cmd
}

func newImportLogShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a step run with its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid import log id %q", args[0])
			}

			l, err := clientFn().GetImportLog(id)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Print(importLogHeaders, [][]string{importLogRow(*l)}, l)
			if !out.jsonMode {
				out.JSON(l.Report)
			}
			return nil
		},
	}
}
