package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/internal/roster"
	"github.com/choicecert/certmill/pkg/mailer"
)

var (
	credentialsName  string
	credentialsEmail string
	credentialsPhone string
	credentialsSend  bool
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Sign up a single Swayam account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !roster.ValidEmail(credentialsEmail) {
			return eris.Errorf("invalid --email %q", credentialsEmail)
		}
		if !roster.ValidPhone(credentialsPhone) {
			return eris.Errorf("--phone must be 10 digits, got %q", credentialsPhone)
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		password, err := e.Generator.GenerateCredentials(ctx, credentialsName, credentialsEmail, credentialsPhone)
		if err != nil {
			return eris.Wrapf(err, "generate credentials for %s", credentialsEmail)
		}
		fmt.Printf("Email: %s\nPassword: %s\n", credentialsEmail, password)

		if credentialsSend {
			tokens, err := loadTokens(cfg.Mail.TokenPath)
			if err != nil {
				return err
			}
			if len(tokens) == 0 {
				return eris.New("--send requires mail.token_path to be configured")
			}

			msg := mailer.Message{
				To:      credentialsEmail,
				Subject: cfg.Mail.CredentialsSubject,
				Body: fmt.Sprintf("Dear %s,\n\nHere are your Swayam login credentials:\n\nEmail: %s\nPassword: %s\n\nBest regards",
					credentialsName, credentialsEmail, password),
				Kind: mailer.KindCredentials,
			}
			if err := e.Mailer.Send(ctx, msg, tokens); err != nil {
				return eris.Wrapf(err, "send credentials to %s", credentialsEmail)
			}
			zap.L().Info("credentials sent", zap.String("to", credentialsEmail))
		}

		return nil
	},
}

func init() {
	credentialsCmd.Flags().StringVar(&credentialsName, "name", "", "account name (required)")
	credentialsCmd.Flags().StringVar(&credentialsEmail, "email", "", "account email (required)")
	credentialsCmd.Flags().StringVar(&credentialsPhone, "phone", "", "10-digit phone number (required)")
	credentialsCmd.Flags().BoolVar(&credentialsSend, "send", false, "email the credentials after signup")
	_ = credentialsCmd.MarkFlagRequired("name")
	_ = credentialsCmd.MarkFlagRequired("email")
	_ = credentialsCmd.MarkFlagRequired("phone")
	rootCmd.AddCommand(credentialsCmd)
}
