package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devboard/devboard/internal/board"
	"github.com/devboard/devboard/internal/db"
)

func taskCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage kanban tasks",
	}

	cmd.AddCommand(taskListCmd(dbPath))
	cmd.AddCommand(taskAddCmd(dbPath))
	cmd.AddCommand(taskMvCmd(dbPath))
	cmd.AddCommand(taskReorderCmd(dbPath))
	cmd.AddCommand(taskBranchCmd(dbPath))
	cmd.AddCommand(taskRmCmd(dbPath))
	return cmd
}

func taskListCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks by column",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			for _, status := range []string{db.StatusTodo, db.StatusProgress, db.StatusReview, db.StatusDone} {
				tasks, err := a.db.ListTasksByStatus(status)
				if err != nil {
					return err
				}
				fmt.Println(titleStyle.Render(status))
				if len(tasks) == 0 {
					fmt.Println(dimStyle.Render("  (empty)"))
					continue
				}
				for _, t := range tasks {
					line := "  " + t.Title
					if t.BranchName != "" {
						line += dimStyle.Render(" [" + t.BranchName + "]")
					}
					if t.SessionName != "" {
						line += okStyle.Render(" ⦿ " + t.SessionName)
					}
					fmt.Println(line + dimStyle.Render("  id="+t.ID))
				}
			}
			return nil
		},
	}
}

func taskAddCmd(dbPath *string) *cobra.Command {
	var req board.CreateTaskRequest

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task, optionally branched and sessioned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			req.Title = args[0]
			task, err := a.lifecycle.CreateTask(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Println(okStyle.Render("Created ") + task.Title + dimStyle.Render("  id="+task.ID))
			if task.SessionName != "" {
				fmt.Println(dimStyle.Render("session: ") + task.SessionName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Description, "desc", "", "Task description")
	cmd.Flags().StringVar(&req.Status, "status", db.StatusTodo, "Initial status (TODO, PROGRESS, REVIEW, DONE)")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project id to link")
	cmd.Flags().StringVar(&req.BranchName, "branch", "", "Branch to create for the task")
	cmd.Flags().StringVar(&req.BaseBranch, "base", "", "Base branch (default: project's default branch)")
	cmd.Flags().StringVar(&req.SessionType, "session", "", "Session type (tmux or zellij)")
	cmd.Flags().StringVar(&req.AgentType, "agent", "", "Agent tag for the session")
	return cmd
}

func taskMvCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <task-id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.lifecycle.Move(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("Moved ") + task.Title + dimStyle.Render(" -> "+task.Status))
			return nil
		},
	}
}

func taskReorderCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <status> <task-id>...",
		Short: "Set the full ordering of one column",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.lifecycle.Reorder(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("Reordered."))
			return nil
		},
	}
}

func taskBranchCmd(dbPath *string) *cobra.Command {
	var projectID, base, branch, sessionType string

	cmd := &cobra.Command{
		Use:   "branch <task-id>",
		Short: "Create a branch for a task and start a terminal session on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.lifecycle.BranchFromTask(cmd.Context(), args[0], projectID, base, branch, sessionType)
			if err != nil {
				return err
			}

			fmt.Println(okStyle.Render("Branched ") + task.BranchName +
				dimStyle.Render(" from "+task.BaseBranch))
			if task.SessionName != "" {
				fmt.Println(dimStyle.Render("session: ") + task.SessionName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (required)")
	cmd.Flags().StringVar(&base, "base", "", "Base branch (default: project's default branch)")
	cmd.Flags().StringVar(&branch, "branch", "", "New branch name (required)")
	cmd.Flags().StringVar(&sessionType, "session", db.SessionTmux, "Session type (tmux or zellij)")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("branch")
	return cmd
}

func taskRmCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			deleted, err := a.lifecycle.DeleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Println(warnStyle.Render("No such task."))
				return nil
			}
			fmt.Println(okStyle.Render("Deleted."))
			return nil
		},
	}
}
