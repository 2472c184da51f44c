/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/authcore/apiserver/config"
	"github.com/authcore/apiserver/internal/logging"
	"github.com/authcore/apiserver/internal/mailer"
	"github.com/authcore/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the mail delivery worker",
	Long: `Consumes queued password-reset mail jobs from the configured
broker and delivers them over SMTP. Requires MAIL_BACKEND=rabbitmq or
MAIL_BACKEND=pubsub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Mail.Backend == "smtp" {
			return fmt.Errorf("worker requires a broker mail backend, got %q", cfg.Mail.Backend)
		}

		backend, err := mq.NewBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = backend.Close()
		}()

		log := logging.New("mail-worker")
		smtp := mailer.NewSMTPMailer(cfg.SMTP, cfg.Mail.From)
		worker := mailer.NewWorker(backend, cfg.Mail.Queue, smtp, log)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
