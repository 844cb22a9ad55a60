package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func projectCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage registered projects",
	}

	cmd.AddCommand(projectListCmd(dbPath))
	cmd.AddCommand(projectAddCmd(dbPath))
	cmd.AddCommand(projectScanCmd(dbPath))
	cmd.AddCommand(projectRmCmd(dbPath))
	cmd.AddCommand(projectBranchesCmd(dbPath))
	return cmd
}

func projectListCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			projects, err := a.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println(dimStyle.Render("No projects registered."))
				return nil
			}

			for _, p := range projects {
				host := "local"
				if p.SSHHost != "" {
					host = p.SSHHost
				}
				fmt.Printf("%s  %s\n", titleStyle.Render(p.Name),
					dimStyle.Render(fmt.Sprintf("%s (%s, default %s)  id=%s", p.RepoPath, host, p.DefaultBranch, p.ID)))
			}
			return nil
		},
	}
}

func projectAddCmd(dbPath *string) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "add <name> <repo-path>",
		Short: "Register a git repository as a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			project, err := a.registry.Register(cmd.Context(), args[0], args[1], host)
			if err != nil {
				return err
			}

			fmt.Println(okStyle.Render("Registered ") + project.Name +
				dimStyle.Render(" (default branch "+project.DefaultBranch+")"))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "SSH host to run on (default: local)")
	return cmd
}

func projectScanCmd(dbPath *string) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "scan <root-path>",
		Short: "Scan a directory tree and register every git repository found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.registry.BulkRegister(cmd.Context(), args[0], host)
			if err != nil {
				return err
			}

			for _, name := range result.Registered {
				fmt.Println(okStyle.Render("+ ") + name)
			}
			for _, path := range result.Skipped {
				fmt.Println(dimStyle.Render("= " + path + " (already registered)"))
			}
			for _, e := range result.Errors {
				fmt.Println(errStyle.Render("! ") + e.Path + dimStyle.Render(": "+e.Message))
			}

			fmt.Printf("\n%d registered, %d skipped, %d errors\n",
				len(result.Registered), len(result.Skipped), len(result.Errors))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "SSH host to scan (default: local)")
	return cmd
}

func projectRmCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <project-id>",
		Short: "Delete a project (tasks keep their branch info, lose the link)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			deleted, err := a.registry.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Println(warnStyle.Render("No such project."))
				return nil
			}
			fmt.Println(okStyle.Render("Deleted."))
			return nil
		},
	}
}

func projectBranchesCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "branches <project-id>",
		Short: "List branches of a project's repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*dbPath)
			if err != nil {
				return err
			}
			defer a.close()

			branches, err := a.registry.ProjectBranches(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, b := range branches {
				fmt.Println(b)
			}
			return nil
		},
	}
}
