package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amishk599/jobboard/internal/model"
)

var (
	jobFlags struct {
		title, description, location, workMode, jobType string
		companyID, createdBy                            int64
		salaryMin, salaryMax                            int
	}
	applyUserID int64
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage job postings",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a job posting and publish job-created",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}
		spec := model.JobSpec{
			Title:       jobFlags.title,
			Description: jobFlags.description,
			CompanyID:   jobFlags.companyID,
			Location:    jobFlags.location,
			WorkMode:    jobFlags.workMode,
			JobType:     jobFlags.jobType,
		}
		spec.SalaryMin, spec.SalaryMax = salaryFlags(a.flags)

		job, err := svc.Create(ctx, spec, jobFlags.createdBy)
		if err != nil {
			return err
		}
		return printJSON(job)
	}),
}

var jobGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "job")
		if err != nil {
			return err
		}
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}
		job, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(job)
	}),
}

var jobUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "job")
		if err != nil {
			return err
		}
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}

		flags := a.flags
		var u model.JobUpdate
		if flags.Changed("title") {
			u.Title = &jobFlags.title
		}
		if flags.Changed("description") {
			u.Description = &jobFlags.description
		}
		if flags.Changed("company-id") {
			u.CompanyID = &jobFlags.companyID
		}
		if flags.Changed("location") {
			u.Location = &jobFlags.location
		}
		if flags.Changed("work-mode") {
			u.WorkMode = &jobFlags.workMode
		}
		if flags.Changed("job-type") {
			u.JobType = &jobFlags.jobType
		}
		u.SalaryMin, u.SalaryMax = salaryFlags(flags)

		job, err := svc.Update(ctx, id, u)
		if err != nil {
			return err
		}
		return printJSON(job)
	}),
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "job")
		if err != nil {
			return err
		}
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}
		ok, err := svc.SoftDelete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("job %d: %w", id, model.ErrNotFound)
		}
		fmt.Printf("job %d deactivated\n", id)
		return nil
	}),
}

var jobApplyCmd = &cobra.Command{
	Use:   "apply <id>",
	Short: "Record an application to a job",
	Args:  cobra.ExactArgs(1),
	RunE: runWithApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "job")
		if err != nil {
			return err
		}
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}
		err = svc.Apply(ctx, id, applyUserID)
		if errors.Is(err, model.ErrDuplicateApplication) {
			fmt.Printf("user %d already applied to job %d\n", applyUserID, id)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("user %d applied to job %d\n", applyUserID, id)
		return nil
	}),
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active job postings",
	RunE: runWithApp(func(ctx context.Context, a *app, _ []string) error {
		svc, err := a.jobService(ctx)
		if err != nil {
			return err
		}
		jobs, err := svc.ListActive(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-35s %-20s %s\n", "ID", "Title", "Company", "Location")
		fmt.Println(strings.Repeat("─", 80))
		for _, j := range jobs {
			fmt.Printf("%-6d %-35s %-20s %s\n", j.ID, j.Title, j.CompanyName, j.Location)
		}
		fmt.Printf("\nTotal: %d active jobs\n", len(jobs))
		return nil
	}),
}

// salaryFlags returns pointers for the salary flags that were set.
func salaryFlags(flags *pflag.FlagSet) (lo, hi *int) {
	if flags.Changed("salary-min") {
		lo = &jobFlags.salaryMin
	}
	if flags.Changed("salary-max") {
		hi = &jobFlags.salaryMax
	}
	return lo, hi
}

func addJobFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&jobFlags.title, "title", "", "job title")
	f.StringVar(&jobFlags.description, "description", "", "job description (at least 10 characters)")
	f.Int64Var(&jobFlags.companyID, "company-id", 0, "company id")
	f.StringVar(&jobFlags.location, "location", "", "job location")
	f.IntVar(&jobFlags.salaryMin, "salary-min", 0, "minimum salary")
	f.IntVar(&jobFlags.salaryMax, "salary-max", 0, "maximum salary")
	f.StringVar(&jobFlags.workMode, "work-mode", "", "remote, on-site or hybrid")
	f.StringVar(&jobFlags.jobType, "job-type", "", "full-time, part-time or contract")
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobCreateCmd, jobGetCmd, jobUpdateCmd, jobDeleteCmd, jobApplyCmd, jobListCmd)

	addJobFieldFlags(jobCreateCmd)
	jobCreateCmd.Flags().Int64Var(&jobFlags.createdBy, "created-by", 0, "id of the posting user")
	for _, name := range []string{"title", "description", "company-id", "location", "work-mode", "job-type"} {
		jobCreateCmd.MarkFlagRequired(name)
	}

	addJobFieldFlags(jobUpdateCmd)

	jobApplyCmd.Flags().Int64Var(&applyUserID, "user", 0, "applying user id")
	jobApplyCmd.MarkFlagRequired("user")
}
