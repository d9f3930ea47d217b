package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsJSON   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect class jobs in the configured store",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first (optionally by status)",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.JobStatus(jobsStatus) // "" means all
		if status != "" && !status.Valid() {
			return fmt.Errorf("unknown status %q", jobsStatus)
		}

		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		jobs, err := st.List(context.Background(), status, jobsLimit)
		if err != nil {
			return err
		}
		if jobsJSON {
			b, _ := json.MarshalIndent(jobs, "", "  ")
			fmt.Println(string(b))
			return nil
		}
		for _, j := range jobs {
			fmt.Printf("%s  %-10s  %s  rounds=%d  url=%q  err=%q\n",
				j.ID, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05"), numRounds(j), deref(j.FileURL), deref(j.Error))
		}
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		job, err := st.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

func numRounds(j *model.Job) int {
	if j.Plan == nil {
		return 0
	}
	return j.Plan.NumRounds
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status (queued|processing|done|error)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Max rows")
	jobsListCmd.Flags().BoolVar(&jobsJSON, "json", false, "JSON output")
	jobsCmd.AddCommand(jobsListCmd, jobsGetCmd)
	rootCmd.AddCommand(jobsCmd)
}
