package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "List and inspect projects",
	}

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProjects(projects))
			return nil
		},
	})

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "get <project-id>",
		Short: "Show a project and its scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			project, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, project)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", project.Title, project.Description)
			if project.AudioURL != "" {
				fmt.Fprintf(out, "Audio: %s\n", project.AudioURL)
			}
			fmt.Fprintln(out, renderScenes(project, isTerminal(out)))
			return nil
		},
	})

	return projectsCmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show image generation status per scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			rows := make([][]string, 0, len(status.Scenes))
			for _, s := range status.Scenes {
				rows = append(rows, []string{
					fmt.Sprint(s.Index),
					statusLabel(s.ImageGenerationStatus, colorize),
					s.GenerationID,
					fmt.Sprint(s.Images),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Status", "Generation", "Images"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d pending, %d requested, %d completed\n", status.Pending, status.Requested, status.Completed)
			return nil
		},
	}
}
