package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/internal/batch"
	"github.com/choicecert/certmill/internal/model"
	"github.com/choicecert/certmill/internal/roster"
	"github.com/choicecert/certmill/pkg/mailer"
)

var (
	generateName  string
	generateEmail string
	generateSend  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single certificate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		ref, err := e.Generator.GenerateCertificate(ctx, generateName)
		if err != nil {
			return eris.Wrapf(err, "generate certificate for %s", generateName)
		}
		fmt.Println(ref)

		status := model.HistoryDownloaded
		if generateSend {
			if !roster.ValidEmail(generateEmail) {
				return eris.Errorf("--send requires a valid --email, got %q", generateEmail)
			}
			tokens, err := loadTokens(cfg.Mail.TokenPath)
			if err != nil {
				return err
			}
			if len(tokens) == 0 {
				return eris.New("--send requires mail.token_path to be configured")
			}

			msg := mailer.Message{
				To:            generateEmail,
				Subject:       cfg.Mail.Subject,
				Body:          batch.RenderTemplate(cfg.Mail.Template, generateName),
				AttachmentURL: ref,
				Kind:          mailer.KindCertificate,
			}
			if err := e.Mailer.Send(ctx, msg, tokens); err != nil {
				return eris.Wrapf(err, "send certificate to %s", generateEmail)
			}
			status = model.HistoryEmailed
			zap.L().Info("certificate sent", zap.String("to", generateEmail))
		}

		if err := e.History.Append(ctx, model.HistoryEntry{
			Name:        generateName,
			ArtifactRef: ref,
			Status:      status,
		}); err != nil {
			zap.L().Warn("history write failed", zap.Error(err))
		}

		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateName, "name", "", "recipient name (required)")
	generateCmd.Flags().StringVar(&generateEmail, "email", "", "recipient email")
	generateCmd.Flags().BoolVar(&generateSend, "send", false, "email the certificate after generating")
	_ = generateCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(generateCmd)
}
