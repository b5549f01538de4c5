package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"ai-videos-backend/internal/models"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var scenes []int
	var regenerate bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Request images for a project's scenes",
		Long: "Requests one image generation per scene. By default every pending scene is\n" +
			"requested; --scene picks scenes by index and --regenerate includes completed ones.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			project, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			refs := selectScenes(project, scenes, regenerate)
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenes to generate")
				return nil
			}

			resp, err := client.RequestImages(cmd.Context(), project.ID, refs)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() && !watch {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			fmt.Fprintln(out, resp.Message)
			printErrors(out, resp.Errors, colorize)
			if resp.Project == nil {
				return nil
			}
			fmt.Fprintln(out, summaryLine(resp.Project))

			if !watch {
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return watchProject(cmd, client, resp.Project, cfg.pollInterval, ctx.jsonOutput())
		},
	}

	cmd.Flags().IntSliceVar(&scenes, "scene", nil, "Scene index to generate (repeatable)")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Include scenes that already have images")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until every requested scene completes")

	return cmd
}

// selectScenes picks the scenes to request. Explicit indexes win; otherwise
// pending scenes, plus completed ones when regenerate is set. Scenes already
// requested are left to the server to accept or reject.
func selectScenes(p *models.Project, indexes []int, regenerate bool) []models.SceneGenerationRef {
	var refs []models.SceneGenerationRef
	for _, s := range p.Scenes {
		switch {
		case len(indexes) > 0:
			if !slices.Contains(indexes, s.Index) {
				continue
			}
		case s.ImageGenerationStatus == models.StatusPending || s.ImageGenerationStatus == "":
		case s.ImageGenerationStatus == models.StatusCompleted && regenerate:
		default:
			continue
		}
		refs = append(refs, models.SceneGenerationRef{
			ID:          s.ID,
			Index:       s.Index,
			ImagePrompt: s.ImagePrompt,
		})
	}
	return refs
}
