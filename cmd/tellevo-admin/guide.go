package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/tellevo/guide"
)

func newGuideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Query the operator knowledge base",
	}

	cmd.AddCommand(newGuideSearchCommand())
	cmd.AddCommand(newGuideTroubleshootCommand())
	cmd.AddCommand(newGuideDevelopCommand())
	cmd.AddCommand(newGuideContextCommand())

	return cmd
}

func newGuideSearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "search <terms...>",
		Short:   "Search every note for the given terms",
		Example: `  tellevo-admin guide search websocket heartbeat`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches := guide.Default().Search(strings.Join(args, " "))
			if limit > 0 && len(matches) > limit {
				matches = matches[:limit]
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				_, err := fmt.Fprintln(out, "no matches")
				return err
			}
			for _, m := range matches {
				if _, err := fmt.Fprintf(out, "[%d] %s\n    %s\n", m.Score, m.Path, m.Content); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results (0 = all)")
	return cmd
}

func newGuideTroubleshootCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "troubleshoot <issue...>",
		Short:   "Suggest fixes for a described problem",
		Example: `  tellevo-admin guide troubleshoot login returns 401`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return guide.RenderGuidance(cmd.OutOrStdout(), guide.Default().Troubleshoot(strings.Join(args, " ")))
		},
	}
}

func newGuideDevelopCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "develop <task...>",
		Short:   "Show the workflow for a development task",
		Example: `  tellevo-admin guide develop add an empresa field`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return guide.RenderGuidance(cmd.OutOrStdout(), guide.Default().Develop(strings.Join(args, " ")))
		},
	}
}

func newGuideContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "context [area]",
		Short: "Print the notes for one area",
		Long:  `Print the notes for one area, or list the areas when none is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := guide.Default()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				_, err := fmt.Fprintln(out, strings.Join(g.Areas(), "\n"))
				return err
			}
			return guide.Render(out, g.Context(args[0]))
		},
	}
}
