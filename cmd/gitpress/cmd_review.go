package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var reviewNoExport bool

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Approve, reject, or revise generated articles",
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [task-id]",
	Short: "Approve an article and export it",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject [task-id]",
	Short: "Park an article as pending without discarding it",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

var reviewReviseCmd = &cobra.Command{
	Use:   "revise [task-id] [feedback...]",
	Short: "Re-queue an article with reviewer feedback and regenerate",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRevise,
}

func init() {
	reviewApproveCmd.Flags().BoolVar(&reviewNoExport, "no-export", false, "approve without writing the article to the exports dir")
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewReviseCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dir := exportsDir()
	if reviewNoExport {
		dir = ""
	}
	if err := newRunner(st).Approve(args[0], dir); err != nil {
		return err
	}
	fmt.Printf("task %s approved\n", args[0])
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := newRunner(st).Reject(args[0]); err != nil {
		return err
	}
	fmt.Printf("task %s parked as pending\n", args[0])
	return nil
}

func runRevise(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedback := strings.Join(args[1:], " ")
	h, err := newRunner(st).Revise(ctx, args[0], feedback)
	if err != nil {
		return err
	}
	<-h.Done()
	return reportTask(st, args[0], h.Err())
}
