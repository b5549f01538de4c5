package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"ai-videos-backend/internal/models"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusLabel(status models.GenerationStatus, colorize bool) string {
	label := string(status)
	if label == "" {
		label = string(models.StatusPending)
	}
	if !colorize {
		return label
	}
	switch status {
	case models.StatusCompleted:
		return ansiGreen + label + ansiReset
	case models.StatusRequested:
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func projectRows(projects []models.Project) [][]string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		status := models.NewStatusResponse(&p)
		rows = append(rows, []string{
			p.ID,
			truncate(p.Title, 40),
			strconv.Itoa(len(p.Scenes)),
			strconv.Itoa(status.Requested),
			strconv.Itoa(status.Completed),
			formatTime(p.UpdatedAt),
		})
	}
	return rows
}

func renderProjects(projects []models.Project) string {
	return renderTable(
		[]string{"ID", "Title", "Scenes", "Requested", "Completed", "Updated"},
		projectRows(projects),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func sceneRows(p *models.Project, colorize bool) [][]string {
	rows := make([][]string, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			s.ID,
			statusLabel(s.ImageGenerationStatus, colorize),
			strconv.Itoa(len(s.Images)),
			truncate(s.ImagePrompt, 50),
		})
	}
	return rows
}

func renderScenes(p *models.Project, colorize bool) string {
	return renderTable(
		[]string{"#", "Scene", "Images status", "Images", "Prompt"},
		sceneRows(p, colorize),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func summaryLine(p *models.Project) string {
	s := models.NewStatusResponse(p)
	return fmt.Sprintf("%s: %d pending, %d requested, %d completed", p.ID, s.Pending, s.Requested, s.Completed)
}

func printErrors(w io.Writer, errs []string, colorize bool) {
	for _, e := range errs {
		if colorize {
			fmt.Fprintln(w, ansiRed+"  ! "+e+ansiReset)
		} else {
			fmt.Fprintln(w, "  ! "+e)
		}
	}
}
