package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sykell/metabear/internal/app"
	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/config"
	"github.com/sykell/metabear/internal/export"
	"github.com/sykell/metabear/internal/tabs"
)

// cliUserID owns the tabs opened by the CLI.
const cliUserID = 0

type auditFlags struct {
	browser bool
	fields  string
	out     string
	json    bool
}

func newAuditCmd() *cobra.Command {
	var flags auditFlags

	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit one page and print its issues",
		Long: `Audit loads a page, scans its metadata, headings, images and links, and
prints the score together with every issue found.

Examples:
  # Audit a page over plain HTTP
  metabear audit https://example.com

  # Render the page in headless Chrome and save an export
  metabear audit https://example.com --browser --out report.json --fields score,issues`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.browser, "browser", false, "Render the page in headless Chrome and run axe-core")
	cmd.Flags().StringVar(&flags.fields, "fields", "", "Comma separated export sections ("+strings.Join(export.Fields, ",")+")")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Write the JSON export to this file (\"-\" for stdout)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the full audit result as JSON instead of a table")
	return cmd
}

func runAudit(cmd *cobra.Command, url string, flags auditFlags) error {
	opts, err := export.ParseOptions(flags.fields)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if flags.browser {
		cfg.BrowserEnabled = true
	}

	pipeline, err := app.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	manager := tabs.NewManager(pipeline.Options(nil))
	tab := manager.Open(cliUserID, url)
	defer manager.Close(tab.ID)

	resp := manager.RunAuditForTab(cmd.Context(), tab.ID)
	if resp.Restricted {
		return fmt.Errorf("%s cannot be audited", url)
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}

	out := cmd.OutOrStdout()
	if flags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp.Data); err != nil {
			return err
		}
	} else {
		renderResult(out, resp.Data)
	}

	if flags.out != "" {
		return writeExport(out, flags.out, resp.Data, opts)
	}
	return nil
}

func writeExport(stdout io.Writer, path string, result *audit.Result, opts export.Options) error {
	payload, err := export.Build(result, opts, time.Now())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if path == "-" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(stdout, "Export written to %s\n", path)
	return nil
}

// renderResult prints the score summary and the issue table.
func renderResult(w io.Writer, result *audit.Result) {
	high, medium := audit.Counts(result.Issues)

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendRow(table.Row{"URL", result.Metadata.PageURL})
	summary.AppendRow(table.Row{"Score", fmt.Sprintf("%d/100", result.Score)})
	summary.AppendRow(table.Row{"Issues", fmt.Sprintf("%d (%d high, %d medium)", len(result.Issues), high, medium)})
	summary.AppendRow(table.Row{"Headings", len(result.Headings)})
	summary.AppendRow(table.Row{"Images", len(result.Images)})
	summary.AppendRow(table.Row{"Links", len(result.Links)})
	if result.Partial() {
		summary.AppendRow(table.Row{"Accessibility", "unavailable: " + result.Error})
	}
	summary.Render()

	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}

	issues := table.NewWriter()
	issues.SetOutputMirror(w)
	issues.SetStyle(table.StyleRounded)
	issues.AppendHeader(table.Row{"#", "Severity", "Type", "Issue", "Details"})
	issues.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 80},
	})
	for i, issue := range result.Issues {
		issues.AppendRow(table.Row{i + 1, issue.Severity, issue.Kind, issue.Title, issue.Description})
	}
	issues.AppendFooter(table.Row{"", "", "", "Total", len(result.Issues)})
	issues.Render()
}
