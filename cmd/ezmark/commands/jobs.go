package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/queue"
)

// JobsCmd groups job queue operations
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the job queue",
	Long: `Manage the job queue.

Examples:
  ezmark jobs ls                    # List recent jobs
  ezmark jobs ls --status pending   # List pending jobs only
  ezmark jobs add parts.xlsx        # Enqueue a file manually
  ezmark jobs show job_171234_1     # Show one job in detail
  ezmark jobs cancel job_171234_1   # Cancel a pending job
  ezmark jobs clear                 # Remove finished job records`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return runJobsLs(statusFilter, limit)
	},
}

var jobsAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Enqueue a file for processing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, _ := cmd.Flags().GetInt("priority")
		return runJobsAdd(args[0], priority)
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show details for one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsShow(args[0])
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsCancel(args[0])
	},
}

var jobsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove finished job records",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		return runJobsClear(olderThan)
	},
}

func init() {
	jobsLsCmd.Flags().String("status", "", "Filter by status (pending, running, completed, failed, canceled)")
	jobsLsCmd.Flags().Int("limit", 20, "Maximum number of jobs to list")
	jobsAddCmd.Flags().Int("priority", 0, "Job priority (lower runs first)")
	jobsClearCmd.Flags().Duration("older-than", 0, "Only remove records finished longer ago than this (0 = all)")

	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsAddCmd)
	JobsCmd.AddCommand(jobsShowCmd)
	JobsCmd.AddCommand(jobsCancelCmd)
	JobsCmd.AddCommand(jobsClearCmd)
}

// openQueue wires the queue against the configured database
func openQueue() (*queue.Queue, func(), error) {
	manager, err := loadManager()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDatabase(manager.Active(), "")
	if err != nil {
		return nil, nil, err
	}
	return queue.NewQueue(db), func() { db.Close() }, nil
}

func runJobsLs(statusFilter string, limit int) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	var status *queue.Status
	if statusFilter != "" {
		s := queue.Status(statusFilter)
		status = &s
	}

	jobs, err := q.List(status, limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-22s %-11s %-12s %-8s %-17s %s\n", "JOB ID", "TYPE", "STATUS", "PRIORITY", "ADDED", "FILE")
	fmt.Printf("%-22s %-11s %-12s %-8s %-17s %s\n", "------", "----", "------", "--------", "-----", "----")
	for _, job := range jobs {
		fmt.Printf("%-22s %-11s %-12s %-8d %-17s %s\n",
			truncate(job.ID, 22),
			job.Type,
			job.Status,
			job.Priority,
			job.AddedAt.Format("2006-01-02 15:04"),
			filepath.Base(job.FilePath))
	}
	fmt.Printf("\nTotal: %d job(s)\n", len(jobs))
	return nil
}

func runJobsAdd(path string, priority int) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}
	cfg := manager.Active()

	// Decide the job type from the configured patterns
	var jobType queue.Type
	switch {
	case config.ParsePatterns(cfg.Settings.SpreadsheetPattern).Matches(path):
		jobType = queue.TypeSpreadsheet
	case config.ParsePatterns(cfg.Settings.ArtifactPattern).Matches(path):
		jobType = queue.TypeArtifact
	default:
		return fmt.Errorf("%s matches neither the spreadsheet pattern (%s) nor the design pattern (%s)",
			path, cfg.Settings.SpreadsheetPattern, cfg.Settings.ArtifactPattern)
	}

	db, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := queue.NewQueue(db).Enqueue(path, jobType, priority)
	if err != nil {
		return err
	}
	fmt.Printf("Enqueued %s\n  ID: %s\n  Type: %s\n  Priority: %d\n", path, job.ID, job.Type, job.Priority)
	return nil
}

func runJobsShow(jobID string) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	job, err := q.Get(jobID)
	if err != nil {
		return err
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  File:     %s\n", job.FilePath)
	fmt.Printf("  Type:     %s\n", job.Type)
	fmt.Printf("  Status:   %s\n", job.Status)
	fmt.Printf("  Priority: %d\n", job.Priority)
	fmt.Printf("  Added:    %s\n", job.AddedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started:  %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.EndedAt != nil {
		fmt.Printf("  Ended:    %s\n", job.EndedAt.Format(time.RFC3339))
	}
	if len(job.Result) > 0 {
		fmt.Printf("  Result:\n")
		for k, v := range job.Result {
			fmt.Printf("    %s: %v\n", k, v)
		}
	}
	if job.Error != "" {
		fmt.Printf("  Error:    %s\n", job.Error)
	}
	return nil
}

func runJobsCancel(jobID string) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := q.Cancel(jobID); err != nil {
		return err
	}
	fmt.Printf("Canceled job %s\n", jobID)
	return nil
}

func runJobsClear(olderThan time.Duration) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := q.ClearTerminal(olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d finished job record(s)\n", n)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
