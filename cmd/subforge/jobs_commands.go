package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:     %s\n", job.ID)
			fmt.Fprintf(out, "Status:  %s\n", job.Status)
			if job.Stage != "" {
				fmt.Fprintf(out, "Stage:   %s\n", job.Stage)
			}
			if job.Progress.Percent > 0 {
				fmt.Fprintf(out, "Progress: %.1f%%\n", job.Progress.Percent)
			}
			if job.Error != "" {
				fmt.Fprintf(out, "Error:   %s\n", job.Error)
			}

			rows := make([][]string, 0, len(job.Tasks))
			for _, task := range job.Tasks {
				rows = append(rows, []string{task.Name, string(task.Status)})
			}
			fmt.Fprintln(out, renderTable([]string{"Task", "Status"}, rows, nil))

			if len(job.Outputs) > 0 {
				labels := make([]string, 0, len(job.Outputs))
				for label := range job.Outputs {
					labels = append(labels, label)
				}
				sort.Strings(labels)
				outputRows := make([][]string, 0, len(labels))
				for _, label := range labels {
					outputRows = append(outputRows, []string{label, job.Outputs[label]})
				}
				fmt.Fprintln(out, renderTable([]string{"Rendition", "Path"}, outputRows, nil))
			}
			return nil
		},
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List all jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			listed, err := ctx.client().Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(listed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
				return nil
			}

			rows := make([][]string, 0, len(listed))
			for _, job := range listed {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					job.Stage,
					progressCell(job),
					job.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"ID", "Status", "Stage", "Progress", "Created"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Request cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon %s at %s (%d active job(s))\n",
				strings.ToUpper(health.Status), ctx.apiAddress(), health.ActiveJobs)
			return nil
		},
	}
}

func progressCell(job *jobs.Job) string {
	if job.Status.IsTerminal() && job.Status != jobs.StatusCompleted {
		return ""
	}
	return fmt.Sprintf("%.0f%%", job.Progress.Percent)
}
