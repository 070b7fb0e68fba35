package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobboard/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a test notification using the configured notifier.",
	RunE:  runWithApp(runNotifyTest),
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(ctx context.Context, a *app, _ []string) error {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(a.cfg, httpClient, a.logger)
	if n == nil {
		return errors.New("notification.type is \"none\"; nothing to test")
	}

	if err := notifier.SendTestMessage(ctx, n); err != nil {
		a.logger.Error("test notification failed", "error", err)
		return err
	}
	a.logger.Info("test notification sent successfully")
	return nil
}
