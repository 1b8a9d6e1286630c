package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStateCmd создаёт группу команд по states.
func NewStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect entities by state",
	}

	cmd.AddCommand(
		newStateCountsCmd(clientFn, outputFn),
		newStateStuckCmd(clientFn, outputFn),
	)

	return cmd
}

func newStateCountsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var nonZero bool

	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Count entities currently in each state",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := clientFn().StateCounts()
			if err != nil {
				return err
			}

			if nonZero {
				filtered := counts[:0]
				for _, c := range counts {
					if c.Count > 0 {
						filtered = append(filtered, c)
					}
				}
				counts = filtered
			}

			headers := []string{"FLOW", "STATE", "DESCRIPTION", "COUNT"}
			rows := make([][]string, len(counts))
			for i, c := range counts {
				rows[i] = []string{
					strconv.Itoa(c.FlowID),
					strconv.Itoa(c.StateID),
					c.Description,
					strconv.Itoa(c.Count),
				}
			}

			outputFn().Print(headers, rows, counts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonZero, "non-zero", false, "Hide states with no entities")

	return cmd
}

func newStateStuckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts StuckOpts

	cmd := &cobra.Command{
		Use:   "stuck STATE_ID",
		Short: "List entities stuck in a state longer than --days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid state id %q", args[0])
			}
			opts.StateID = id

			logs, err := clientFn().StuckInState(opts)
			if err != nil {
				return err
			}

			headers := []string{"STATE_LOG", "ENTITY", "ENDED_AT", "TIME_IN_STATE"}
			rows := make([][]string, len(logs))
			for i, l := range logs {
				rows[i] = []string{l.ID, l.EntityID, l.EndedAt, l.TimeInState}
			}

			outputFn().Print(headers, rows, logs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Class, "class", "", "Entity class: claim, employee, payment, reference_file (required)")
	cmd.Flags().IntVar(&opts.Days, "days", 1, "Threshold in days")
	cmd.MarkFlagRequired("class")

	return cmd
}
