package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/audit/export"
	"mercator-hq/arbiter/pkg/cli"
)

var auditFlags struct {
	output string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
	Long: `Read the append-only audit trail.

Subcommands:
  show    - Print a case's timeline
  export  - Write a case's events as JSON, JSON lines or CSV`,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <case_id>",
	Short: "Print a case's audit timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditExportCmd = &cobra.Command{
	Use:   "export <case_id>",
	Short: "Export a case's audit events",
	Long: `Export writes every audit event of a case in append order.

The --format flag selects json, jsonl or csv; text output is exported as
json.

Examples:
  arbiter audit export APP-001 --format csv -o app-001.csv
  arbiter audit export FC-042 --format jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runAuditExport,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditShowCmd, auditExportCmd)

	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default stdout)")
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}
	defer a.Close()

	events, err := a.writer.Timeline(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}
	return f.FormatTo(cmd.OutOrStdout(), &timeline{CaseID: args[0], Events: events})
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	format := strings.ToLower(outputFormat)
	if format == "" || format == "text" {
		format = "json"
	}
	exporter, err := export.New(format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	defer a.Close()

	events, err := a.audit.Query(cmd.Context(), &audit.Query{CaseID: args[0]})
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		file, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer file.Close()
		w = file
	}

	if err := exporter.Export(cmd.Context(), events, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.output != "" {
		cmd.PrintErrf("✓ Exported %d events to %s\n", len(events), auditFlags.output)
	}
	return nil
}
