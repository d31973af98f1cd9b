package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/gatewayscan/internal/config"
	"github.com/nao1215/gatewayscan/internal/database"
	"github.com/nao1215/gatewayscan/internal/model"
	"github.com/nao1215/gatewayscan/internal/report"
)

// defaultHistoryLimit caps the rows printed when --limit is not given.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored scan results",
		Long: `History lists results saved by previous scans, newest first.

With a URL argument only that candidate's results are shown. Results can be
filtered by status and exported to an Excel workbook.

Examples:
  # Show the 20 most recent results
  gatewayscan history

  # Show every FOUND result
  gatewayscan history --status found --limit 0

  # Show the history of one site
  gatewayscan history https://shop.example.com

  # Export all results to a spreadsheet
  gatewayscan history --limit 0 --xlsx results.xlsx

  # Show only the most recent result of one site
  gatewayscan history --latest https://shop.example.com

  # Count stored results per status
  gatewayscan history --stats

  # Summarize confirmation feedback
  gatewayscan history --feedback`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("status", "s", "",
		"Only show results with this status (found, not_found, error)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of results (0 = all)")
	cmd.Flags().String("xlsx", "",
		"Export the selected results to an Excel workbook")
	cmd.Flags().BoolP("json", "j", false,
		"Print one JSON object per result")
	cmd.Flags().Bool("feedback", false,
		"Show confirmation feedback counts instead of results")
	cmd.Flags().Bool("stats", false,
		"Show the number of stored results per status")
	cmd.Flags().Bool("latest", false,
		"Show only the most recent result of the given URL")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the results database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	statusText, err := flags.GetString("status")
	if err != nil {
		return err
	}
	status, err := parseStatus(statusText)
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	xlsxPath, err := flags.GetString("xlsx")
	if err != nil {
		return err
	}
	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	feedback, err := flags.GetBool("feedback")
	if err != nil {
		return err
	}
	stats, err := flags.GetBool("stats")
	if err != nil {
		return err
	}
	latest, err := flags.GetBool("latest")
	if err != nil {
		return err
	}
	if latest && len(args) == 0 {
		return errors.New("--latest requires a URL argument")
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.OpenExisting(dbDir)
	if err != nil {
		if errors.Is(err, database.ErrNoDatabase) {
			fmt.Fprintln(cmd.OutOrStdout(), "No scan results yet. Run 'gatewayscan scan' first.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if feedback {
		items, err := db.ListFeedback(ctx)
		if err != nil {
			return err
		}
		return writeFeedback(out, items)
	}

	if stats {
		counts, err := db.CountByStatus(ctx)
		if err != nil {
			return err
		}
		return writeStats(out, counts)
	}

	filter := database.Filter{Status: status, Limit: limit}
	if len(args) == 1 {
		u, err := model.NormalizeURL(args[0])
		if err != nil {
			u = args[0]
		}
		filter.URL = u
	}

	var records []database.Record
	if latest {
		rec, err := db.LatestResult(ctx, filter.URL)
		if err != nil {
			return err
		}
		if rec != nil {
			records = append(records, *rec)
		}
	} else {
		records, err = db.ListResults(ctx, filter)
		if err != nil {
			return err
		}
	}

	results := make([]model.ScanResult, len(records))
	for i, rec := range records {
		results[i] = rec.ScanResult
	}

	if xlsxPath != "" {
		if err := report.NewXLSXExporter().ExportFile(xlsxPath, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d result(s) to %s\n", len(results), xlsxPath)
		return nil
	}

	if jsonOut {
		_, err := report.NewJSONWriter(out).WriteAll(results)
		return err
	}

	_, err = report.NewMarkdownWriter(out).WriteResults(results)
	return err
}

// parseStatus accepts a status name in any case, with '-' or '_'.
func parseStatus(s string) (model.Status, error) {
	if s == "" {
		return "", nil
	}
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch model.Status(normalized) {
	case model.StatusFound, model.StatusNotFound, model.StatusError:
		return model.Status(normalized), nil
	default:
		return "", fmt.Errorf("unknown status %q (use found, not_found or error)", s)
	}
}

// writeFeedback prints confirmation outcome counts.
func writeFeedback(out io.Writer, items []database.Feedback) error {
	var confirmed int
	for _, fb := range items {
		if fb.Succeeded {
			confirmed++
		}
	}
	_, err := fmt.Fprintf(out, "Confirmation checks: %d (confirmed %d, not confirmed %d)\n",
		len(items), confirmed, len(items)-confirmed)
	return err
}

// writeStats prints the stored result count per status.
func writeStats(out io.Writer, counts map[model.Status]int) error {
	var total int
	for _, status := range []model.Status{model.StatusFound, model.StatusNotFound, model.StatusError} {
		total += counts[status]
		if _, err := fmt.Fprintf(out, "%-10s %d\n", status, counts[status]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%-10s %d\n", "TOTAL", total)
	return err
}
