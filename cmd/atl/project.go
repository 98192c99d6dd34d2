package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	var (
		configPath  string
		projectType string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project",
		Long:  "Creates a project following the named project type lifecycle template.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(cmd, configPath, args[0], projectType)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&projectType, "type", "", "project type name (required)")
	cmd.MarkFlagRequired("type")
	return cmd
}

func runProjectCreate(cmd *cobra.Command, configPath, name, projectType string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	p, err := project.Create(gormDB, project.CreateOpts{
		Name:            name,
		ProjectTypeName: projectType,
		Owner:           cfg.Owner,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created project %s (ID %d)\n", p.Name, p.ID)
	fmt.Fprintf(out, "Type: %s\n", projectType)
	return nil
}

func newProjectListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func runProjectList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	projects, err := project.List(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tOWNER")
	for _, p := range projects {
		typeName := ""
		if p.ProjectType != nil {
			typeName = p.ProjectType.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, typeName, p.Owner)
	}
	return w.Flush()
}

func newProjectShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a project and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func runProjectShow(cmd *cobra.Command, configPath, name string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	p, err := project.GetByName(gormDB, name)
	if err != nil {
		return err
	}

	artifacts, err := artifact.List(gormDB, artifact.ListFilters{ProjectID: p.ID})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s (ID %d)\n", p.Name, p.ID)
	if p.ProjectType != nil {
		fmt.Fprintf(out, "Type: %s\n", p.ProjectType.Name)
	}
	if p.Owner != "" {
		fmt.Fprintf(out, "Owner: %s\n", p.Owner)
	}
	fmt.Fprintln(out)

	if len(artifacts) == 0 {
		fmt.Fprintln(out, "No artifacts yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATE")
	for _, a := range artifacts {
		typeName, stateName := "", ""
		if a.Type != nil {
			typeName = a.Type.Name
		}
		if a.State != nil {
			stateName = a.State.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Name, typeName, stateName)
	}
	return w.Flush()
}
