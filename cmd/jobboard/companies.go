package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/store"
)

var newCompany model.Company

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage companies",
}

var companyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a company",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		c, err := store.NewCompanyRepo(db).Create(ctx, newCompany)
		if err != nil {
			return err
		}
		return printJSON(c)
	}),
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all companies",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		db, err := a.store(ctx)
		if err != nil {
			return err
		}
		companies, err := store.NewCompanyRepo(db).List(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-30s %s\n", "ID", "Company", "Location")
		fmt.Println(strings.Repeat("─", 56))
		for _, c := range companies {
			fmt.Printf("%-6d %-30s %s\n", c.ID, c.Name, c.Location)
		}
		fmt.Printf("\nTotal: %d companies\n", len(companies))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(companyCmd)
	companyCmd.AddCommand(companyAddCmd, companyListCmd)

	companyAddCmd.Flags().StringVar(&newCompany.Name, "name", "", "company name")
	companyAddCmd.Flags().StringVar(&newCompany.LogoURL, "logo-url", "", "logo URL")
	companyAddCmd.Flags().StringVar(&newCompany.Location, "location", "", "headquarters location")
	companyAddCmd.MarkFlagRequired("name")
}
