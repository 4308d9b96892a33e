package main

import (
	"fmt"

	"github.com/dgnsrekt/yt_agent/internal/classify"
	"github.com/dgnsrekt/yt_agent/internal/types"
	"github.com/dgnsrekt/yt_agent/internal/view"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "classify <url>",
		Short: "Print the content category of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !explain {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), classify.Classify(args[0]))
				return err
			}
			rule, category := classify.Explain(args[0])
			if rule == "" {
				rule = "-"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\trule=%s\n", category, rule)
			return err
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "also print the rule that matched")
	return cmd
}

func newSelectCmd() *cobra.Command {
	var reachability string
	cmd := &cobra.Command{
		Use:   "select <url>",
		Short: "Print the views shown for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reach := types.Reachability(reachability)
			switch reach {
			case types.ReachabilityUnknown, types.ReachabilityReachable, types.ReachabilityUnreachable:
			default:
				return fmt.Errorf("invalid reachability %q", reachability)
			}
			state := view.Select(classify.Classify(args[0]), reach)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), state.String())
			return err
		},
	}
	cmd.Flags().StringVar(&reachability, "reachability", string(types.ReachabilityReachable), "unknown, reachable or unreachable")
	return cmd
}
