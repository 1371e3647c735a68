package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/internal/archive"
	"github.com/choicecert/certmill/internal/batch"
	"github.com/choicecert/certmill/internal/model"
	"github.com/choicecert/certmill/internal/roster"
)

var (
	bulkFile  string
	bulkKind  string
	bulkMode  string
	bulkOut   string
	bulkLimit int
	bulkYes   bool
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Process a spreadsheet roster",
	Long:  "Parses a roster spreadsheet, previews the validated rows, then generates one artifact per row and either emails each recipient or packs everything into a zip archive.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kind := model.ArtifactKind(bulkKind)
		mode := model.OutputMode(bulkMode)
		if kind != model.KindCertificate && kind != model.KindCredentials {
			return eris.Errorf("invalid --kind %q (certificate or credentials)", bulkKind)
		}
		if mode != model.ModeEmail && mode != model.ModeArchive {
			return eris.Errorf("invalid --mode %q (email or zip)", bulkMode)
		}

		rows, err := roster.Load(bulkFile, roster.Options{RequirePhone: kind == model.KindCredentials})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.Errorf("no valid rows in %s", bulkFile)
		}
		if bulkLimit > 0 && len(rows) > bulkLimit {
			rows = rows[:bulkLimit]
		}

		formatPreview(os.Stdout, rows)
		if !bulkYes && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Process %d rows?", len(rows))) {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		tokens, err := loadTokens(cfg.Mail.TokenPath)
		if err != nil {
			return err
		}
		if mode == model.ModeEmail && len(tokens) == 0 {
			zap.L().Warn("no mail tokens configured, rows will be generated but not delivered")
		}

		runner := batch.New(rows, e.Generator, e.Mailer, archive.NewBuilder(e.Proxy), batch.Options{
			Kind:               kind,
			Mode:               mode,
			Template:           cfg.Mail.Template,
			Subject:            cfg.Mail.Subject,
			CredentialsSubject: cfg.Mail.CredentialsSubject,
			Tokens:             tokens,
			OutDir:             bulkOut,
			History:            e.History,
			Reporter: batch.ReporterFunc(func(p model.BatchProgress) {
				fmt.Fprintf(os.Stderr, "\r%d/%d (%d%%)", p.Completed, p.Total, p.Percent)
			}),
		})

		summary, err := runner.Run(ctx)
		fmt.Fprintln(os.Stderr)
		if summary != nil {
			formatSummary(os.Stdout, summary)
		}
		if err != nil {
			return eris.Wrap(err, "bulk run")
		}
		return nil
	},
}

func init() {
	bulkCmd.Flags().StringVar(&bulkFile, "file", "", "roster spreadsheet path (required)")
	bulkCmd.Flags().StringVar(&bulkKind, "kind", string(model.KindCertificate), "artifact kind (certificate, credentials)")
	bulkCmd.Flags().StringVar(&bulkMode, "mode", string(model.ModeEmail), "output mode (email, zip)")
	bulkCmd.Flags().StringVar(&bulkOut, "out", ".", "archive output directory (zip mode)")
	bulkCmd.Flags().IntVar(&bulkLimit, "limit", 0, "max number of rows to process (0 = all)")
	bulkCmd.Flags().BoolVar(&bulkYes, "yes", false, "skip the confirmation prompt")
	_ = bulkCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(bulkCmd)
}

// confirm prompts on out and reads a y/n answer from in. Anything but an
// explicit yes declines.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// formatPreview writes the validated roster as a table.
func formatPreview(out io.Writer, rows []model.RowRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tNAME\tEMAIL\tPHONE")

	for i, row := range rows {
		email := row.Email
		if email == "" {
			email = "-"
		}
		phone := row.Phone
		if phone == "" {
			phone = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, row.Name, email, phone)
	}
	_ = w.Flush()
}

// formatSummary writes the consolidated outcome, including one line per
// failed row so the operator can see exactly what went wrong.
func formatSummary(out io.Writer, s *model.BatchSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", s.Status)
	_, _ = fmt.Fprintf(w, "Generated:\t%d\n", s.Generated)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.Mode == model.ModeEmail {
		_, _ = fmt.Fprintf(w, "Emailed:\t%d\n", s.Emailed)
		if s.DeliveryFailed > 0 {
			_, _ = fmt.Fprintf(w, "Delivery failed:\t%d\n", s.DeliveryFailed)
		}
	}
	if s.ArchivePath != "" {
		_, _ = fmt.Fprintf(w, "Archive:\t%s\n", s.ArchivePath)
		if s.FetchSkipped > 0 {
			_, _ = fmt.Fprintf(w, "Fetch skipped:\t%d\n", s.FetchSkipped)
		}
	}
	_ = w.Flush()

	for _, outcome := range s.Ledger {
		if outcome.ErrorMessage != "" {
			_, _ = fmt.Fprintf(out, "  FAILED %s: %s\n", outcome.Row.Name, outcome.ErrorMessage)
		}
	}
}
