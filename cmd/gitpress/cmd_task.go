package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitpress/internal/config"
	"gitpress/internal/logging"
	"gitpress/internal/store"
	"gitpress/internal/task"
	"gitpress/internal/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, run, and inspect article tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [record-id-or-repo]...",
	Short: "Queue article tasks for pull records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Run one task, or drain all queued tasks",
	Long: `Runs the given task, or every queued task in creation order when no
id is given. The model configuration is re-resolved for each task, so
edits to the config file take effect between tasks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTaskRun,
}

var taskListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List tasks by status (default: all states)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskList,
}

var taskLogCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Print a task's job log",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskLog,
}

var taskHistoryCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Print a task's lifecycle events",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskHistory,
}

func init() {
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskRunCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskLogCmd)
	taskCmd.AddCommand(taskHistoryCmd)
}

func newRunner(st *store.Store) *task.Runner {
	return task.NewRunner(st, func() config.Config { return resolveConfig(st) }, nil)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runner := newRunner(st)
	for _, ref := range args {
		if _, err := st.ResolveRecord(ref); err != nil {
			return fmt.Errorf("input %q: %w", ref, err)
		}
		t, err := runner.Create(ref)
		if err != nil {
			return err
		}
		fmt.Printf("queued task %s for %s\n", t.ID, ref)
	}
	return nil
}

func runTaskRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config file edits during a drain are picked up without restart.
	if w, werr := config.NewWatcher(effectiveConfigPath(), st, func(cfg config.Config) {
		logger.Info("model config reloaded",
			zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	}); werr == nil {
		if serr := w.Start(ctx); serr == nil {
			defer w.Stop()
		}
	}

	runner := newRunner(st)
	if len(args) == 1 {
		h, err := runner.Start(ctx, args[0])
		if err != nil {
			return err
		}
		<-h.Done()
		return reportTask(st, args[0], h.Err())
	}
	return runner.RunQueued(ctx)
}

func reportTask(st *store.Store, taskID string, runErr error) error {
	t, err := st.GetTask(taskID)
	if err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("task %s %s: %w", t.ID, t.Status, runErr)
	}
	fmt.Printf("task %s %s (%d chars)\n", t.ID, t.Status, len(t.Content))
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	statuses := []types.TaskStatus{
		types.TaskQueued, types.TaskProcessing, types.TaskGenerated,
		types.TaskPending, types.TaskApproved, types.TaskFailed,
	}
	if len(args) == 1 {
		statuses = []types.TaskStatus{types.TaskStatus(strings.ToLower(args[0]))}
	}

	for _, status := range statuses {
		tasks, err := st.TasksByStatus(status)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%-32s  %-10s  %-40s  %s\n",
				t.ID, t.Status, t.RepoName, t.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runTaskLog(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetTask(args[0]); err != nil {
		return err
	}
	content := logging.ReadJobLog(args[0])
	if content == "" {
		fmt.Println("(no log)")
		return nil
	}
	fmt.Print(content)
	return nil
}

func runTaskHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetTask(args[0]); err != nil {
		return err
	}
	events := logging.TaskEvents(args[0])
	if len(events) == 0 {
		fmt.Println("(no events)")
		return nil
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-14s",
			time.UnixMilli(ev.Timestamp).Format("2006-01-02 15:04:05"), ev.Type)
		if ev.Message != "" {
			line += "  " + ev.Message
		}
		if ev.Error != "" {
			line += "  error: " + ev.Error
		}
		fmt.Println(line)
	}
	return nil
}
