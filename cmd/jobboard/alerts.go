package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/store"
)

var (
	newAlert   model.NewAlert
	listUserID int64
	unreadOnly bool
	search     struct {
		userID         int64
		term, location string
	}
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage job alerts",
}

var alertAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a keyword + location alert",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		alert, err := store.NewAlertRepo(db).Create(ctx, newAlert)
		if err != nil {
			return err
		}
		return printJSON(alert)
	}),
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's alerts",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		alerts, err := store.NewAlertRepo(db).ListByUser(ctx, listUserID)
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-25s %-20s %-8s %s\n", "ID", "Keyword", "Location", "Status", "Last triggered")
		fmt.Println(strings.Repeat("─", 80))
		for _, al := range alerts {
			status := "active"
			if !al.IsActive {
				status = "paused"
			}
			triggered := "never"
			if al.LastTriggered != nil {
				triggered = al.LastTriggered.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-6d %-25s %-20s %-8s %s\n", al.ID, al.Keyword, al.Location, status, triggered)
		}
		return nil
	}),
}

func setAlertActive(active bool) func(ctx context.Context, a *app, args []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "alert")
		if err != nil {
			return err
		}
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		if err := store.NewAlertRepo(db).SetActive(ctx, id, active); err != nil {
			return err
		}
		state := "paused"
		if active {
			state = "resumed"
		}
		fmt.Printf("alert %d %s\n", id, state)
		return nil
	}
}

var alertPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Stop matching an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(setAlertActive(false)),
}

var alertResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume matching an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(setAlertActive(true)),
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search history",
}

var searchRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append a search to a user's history",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		entry, err := store.NewHistoryRepo(db).Record(ctx, search.userID, search.term, search.location)
		if err != nil {
			return err
		}
		return printJSON(entry)
	}),
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Read stored notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's notifications, newest first",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		notifications, err := store.NewNotificationRepo(db).ListByUser(ctx, listUserID, unreadOnly)
		if err != nil {
			return err
		}
		return printJSON(notifications)
	}),
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "notification")
		if err != nil {
			return err
		}
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		if err := store.NewNotificationRepo(db).MarkRead(ctx, id); err != nil {
			return err
		}
		fmt.Printf("notification %d marked read\n", id)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(alertCmd, searchCmd, notificationsCmd)

	alertCmd.AddCommand(alertAddCmd, alertListCmd, alertPauseCmd, alertResumeCmd)
	alertAddCmd.Flags().Int64Var(&newAlert.UserID, "user", 0, "owning user id")
	alertAddCmd.Flags().StringVar(&newAlert.Keyword, "keyword", "", "keyword to find in job titles")
	alertAddCmd.Flags().StringVar(&newAlert.Location, "location", "", "location to find in job locations")
	alertAddCmd.Flags().StringVar(&newAlert.Frequency, "frequency", "", "daily or weekly (stored only)")
	alertListCmd.Flags().Int64Var(&listUserID, "user", 0, "user id")
	alertListCmd.MarkFlagRequired("user")

	searchCmd.AddCommand(searchRecordCmd)
	searchRecordCmd.Flags().Int64Var(&search.userID, "user", 0, "searching user id")
	searchRecordCmd.Flags().StringVar(&search.term, "term", "", "search term")
	searchRecordCmd.Flags().StringVar(&search.location, "location", "", "searched location")
	searchRecordCmd.MarkFlagRequired("user")
	searchRecordCmd.MarkFlagRequired("term")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)
	notificationsListCmd.Flags().Int64Var(&listUserID, "user", 0, "user id")
	notificationsListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	notificationsListCmd.MarkFlagRequired("user")
}
