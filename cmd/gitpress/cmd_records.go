package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitpress/internal/fetch"
)

var recordsLimit int

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and maintain pull records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pull records, newest first",
	RunE:  runRecordsList,
}

var recordsDedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate records sharing a URL, keeping the newest",
	RunE:  runRecordsDedup,
}

var recordsEstimateCmd = &cobra.Command{
	Use:   "estimate [record-id-or-repo]",
	Short: "Re-estimate token count for a cloned repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsEstimate,
}

func init() {
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 0, "max records to show (0 = all)")
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsDedupCmd)
	recordsCmd.AddCommand(recordsEstimateCmd)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListPullRecords(recordsLimit)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%-6d %-8s %-40s %7d tok  %s\n",
			r.ID, r.ResultStatus, r.RepoFullName, r.TokenCount, r.Summary)
	}
	return nil
}

func runRecordsDedup(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.DedupRecords()
	if err != nil {
		return err
	}
	fmt.Printf("removed %d duplicate records\n", n)
	return nil
}

func runRecordsEstimate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ResolveRecord(args[0])
	if err != nil {
		return err
	}
	tokens := fetch.EstimateTokens(rec.SavePath)
	if err := st.UpdatePullResult(rec.ID, rec.ResultStatus, tokens, "", ""); err != nil {
		return err
	}
	fmt.Printf("%s: ~%d tokens\n", rec.RepoFullName, tokens)
	return nil
}
