package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewEntityCmd создаёт группу команд по одной сущности.
func NewEntityCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Inspect state of a single entity",
	}

	cmd.AddCommand(
		newEntityLatestCmd(clientFn, outputFn),
		newEntityHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

var stateLogHeaders = []string{"STATE_LOG", "STATE", "DESCRIPTION", "ENDED_AT", "MESSAGE"}

func stateLogRow(l StateLogResponse) []string {
	return []string{l.ID, strconv.Itoa(l.EndStateID), l.EndState, l.EndedAt, l.Message()}
}

func newEntityLatestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flowID int

	cmd := &cobra.Command{
		Use:   "latest TYPE ID",
		Short: "Show the current state of an entity in a flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := clientFn().LatestInFlow(args[0], args[1], flowID)
			if err != nil {
				return err
			}

			headers := append(append([]string{}, stateLogHeaders...), "TIME_IN_STATE")
			row := append(stateLogRow(*l), l.TimeInState)
			outputFn().Print(headers, [][]string{row}, l)
			return nil
		},
	}

	cmd.Flags().IntVar(&flowID, "flow", 0, "Flow ID (required)")
	cmd.MarkFlagRequired("flow")

	return cmd
}

func newEntityHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flowID int

	cmd := &cobra.Command{
		Use:   "history TYPE ID",
		Short: "Show the state history of an entity in a flow, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := clientFn().History(args[0], args[1], flowID)
			if err != nil {
				return err
			}

			rows := make([][]string, len(logs))
			for i, l := range logs {
				rows[i] = stateLogRow(l)
			}

			outputFn().Print(stateLogHeaders, rows, logs)
			return nil
		},
	}

	cmd.Flags().IntVar(&flowID, "flow", 0, "Flow ID (required)")
	cmd.MarkFlagRequired("flow")

	return cmd
}
