package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewFlowCmd создаёт группу команд каталога flows.
func NewFlowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect the flow catalog",
	}

	cmd.AddCommand(
		newFlowListCmd(clientFn, outputFn),
		newFlowShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newFlowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			flows, err := client.ListFlows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "DESCRIPTION", "STATES"}
			rows := make([][]string, len(flows))
			for i, f := range flows {
				rows[i] = []string{strconv.Itoa(f.ID), f.Description, strconv.Itoa(len(f.States))}
			}

			out.Print(headers, rows, flows)
			return nil
		},
	}
}

func newFlowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show flow states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid flow id %q", args[0])
			}

			flow, err := clientFn().GetFlow(id)
			if err != nil {
				return err
			}

			headers := []string{"STATE", "DESCRIPTION"}
			rows := make([][]string, len(flow.States))
			for i, s := range flow.States {
				rows[i] = []string{strconv.Itoa(s.ID), s.Description}
			}

			outputFn().Print(headers, rows, flow)
			return nil
		},
	}
}
