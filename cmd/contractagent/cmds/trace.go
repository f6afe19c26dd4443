package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTraceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect saved reasoning traces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved session ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			ids, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a saved trace as a summary, JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			exp, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var out string
			switch format {
			case "summary":
				out = exp.Summary()
			case "json":
				b, err := exp.JSON()
				if err != nil {
					return err
				}
				out = string(b)
			case "yaml":
				b, err := exp.YAML()
				if err != nil {
					return err
				}
				out = string(b)
			default:
				return fmt.Errorf("unknown output format %q", format)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	show.Flags().StringVarP(&format, "output", "o", "summary", "output format: summary, json or yaml")

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a saved trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			return s.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
