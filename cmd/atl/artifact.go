package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/db"
	"github.com/zulandar/atelier/internal/project"
)

func newArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Artifact management commands",
	}

	cmd.AddCommand(newArtifactCreateCmd())
	cmd.AddCommand(newArtifactListCmd())
	cmd.AddCommand(newArtifactShowCmd())
	cmd.AddCommand(newArtifactInteractCmd())
	cmd.AddCommand(newArtifactSaveCmd())
	cmd.AddCommand(newArtifactTransitionCmd())
	cmd.AddCommand(newArtifactVersionsCmd())
	return cmd
}

func newArtifactCreateCmd() *cobra.Command {
	var (
		configPath  string
		projectName string
		typeName    string
		name        string
		message     string
		model       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new artifact",
		Long: `Creates an artifact of the given type, assembles context from approved
dependencies, and generates the first draft.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactCreate(cmd, configPath, projectName, typeName, name, message, model)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&projectName, "project", "", "project name (required)")
	cmd.Flags().StringVar(&typeName, "type", "", "artifact type name (required)")
	cmd.Flags().StringVar(&name, "name", "", "artifact name (defaults to the type name)")
	cmd.Flags().StringVar(&message, "message", "", "instructions for the first draft")
	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("type")
	return cmd
}

func runArtifactCreate(cmd *cobra.Command, configPath, projectName, typeName, name, message, model string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	p, err := project.GetByName(gormDB, projectName)
	if err != nil {
		return err
	}

	svc, err := buildService(cmd, cfg, gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating %s for %s...\n", typeName, projectName)

	a, err := svc.Create(context.Background(), artifact.CreateOpts{
		ProjectID: p.ID,
		TypeName:  typeName,
		Name:      name,
		Message:   message,
		Model:     model,
		Requester: cfg.Owner,
	})
	if err != nil {
		return err
	}

	content, err := artifact.CurrentContent(gormDB, a)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created artifact %s (ID %d)\n\n", a.Name, a.ID)
	fmt.Fprintln(out, content)
	return nil
}

func newArtifactListCmd() *cobra.Command {
	var (
		configPath  string
		projectName string
		state       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactList(cmd, configPath, projectName, state)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&projectName, "project", "", "filter by project name")
	cmd.Flags().StringVar(&state, "state", "", "filter by state (To Do, In Progress, Approved)")
	return cmd
}

func runArtifactList(cmd *cobra.Command, configPath, projectName, state string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	filters := artifact.ListFilters{State: state}
	if projectName != "" {
		p, err := project.GetByName(gormDB, projectName)
		if err != nil {
			return err
		}
		filters.ProjectID = p.ID
	}

	artifacts, err := artifact.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(artifacts) == 0 {
		fmt.Fprintln(out, "No artifacts found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATE\tPROJECT")
	for _, a := range artifacts {
		typeName, stateName, proj := "", "", ""
		if a.Type != nil {
			typeName = a.Type.Name
		}
		if a.State != nil {
			stateName = a.State.Name
		}
		if a.Project != nil {
			proj = a.Project.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, typeName, stateName, proj)
	}
	return w.Flush()
}

func newArtifactShowCmd() *cobra.Command {
	var (
		configPath string
		history    bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an artifact's current content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			return runArtifactShow(cmd, configPath, id, history)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().BoolVar(&history, "history", false, "include conversation history")
	return cmd
}

func runArtifactShow(cmd *cobra.Command, configPath string, id uint, showHistory bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	a, err := artifact.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Artifact: %s (ID %d)\n", a.Name, a.ID)
	if a.Type != nil {
		fmt.Fprintf(out, "Type: %s (%s)\n", a.Type.Name, a.Type.Syntax)
	}
	if a.State != nil {
		fmt.Fprintf(out, "State: %s\n", a.State.Name)
	}

	versions, err := artifact.Versions(gormDB, a.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Versions: %d\n\n", len(versions))

	content, err := artifact.CurrentContent(gormDB, a)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, content)

	if showHistory {
		msgs, err := artifact.History(gormDB, a.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\n--- Conversation ---")
		for _, m := range msgs {
			fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
		}
	}
	return nil
}

func newArtifactInteractCmd() *cobra.Command {
	var (
		configPath string
		message    string
		model      string
		stream     bool
	)

	cmd := &cobra.Command{
		Use:   "interact <id>",
		Short: "Send a revision request to an artifact",
		Long: `Sends a message to the model with the artifact's full context and
conversation history. The reply's content, if any, becomes a new version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			return runArtifactInteract(cmd, configPath, id, message, model, stream)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send (required)")
	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the model's reply to stdout as it arrives")
	cmd.MarkFlagRequired("message")
	return cmd
}

func runArtifactInteract(cmd *cobra.Command, configPath string, id uint, message, model string, stream bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	svc, err := buildService(cmd, cfg, gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()

	if stream {
		reply, err := svc.StreamInteract(ctx, id, message, model, cfg.Owner, func(chunk string) {
			fmt.Fprint(out, chunk)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if reply.Content != "" {
			fmt.Fprintln(out, "Saved as a new version.")
		}
		return nil
	}

	reply, err := svc.Interact(ctx, id, message, model, cfg.Owner)
	if err != nil {
		return err
	}
	if reply.Commentary != "" {
		fmt.Fprintln(out, reply.Commentary)
	}
	if reply.Content != "" {
		fmt.Fprintf(out, "\n%s\n\nSaved as a new version.\n", reply.Content)
	}
	return nil
}

func newArtifactSaveCmd() *cobra.Command {
	var (
		configPath string
		name       string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save a manual edit as a new version",
		Long: `Replaces the artifact's content with the given file, creating a new
version. Identical content is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			return runArtifactSave(cmd, configPath, id, name, file)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().StringVar(&name, "name", "", "rename the artifact")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with the new content")
	return cmd
}

func runArtifactSave(cmd *cobra.Command, configPath string, id uint, name, file string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	opts := artifact.UpdateOpts{Requester: cfg.Owner}
	if name != "" {
		opts.HasName = true
		opts.Name = name
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		opts.HasContent = true
		opts.Content = string(data)
	}
	if !opts.HasName && !opts.HasContent {
		return fmt.Errorf("nothing to save: pass --name and/or --file")
	}

	svc := artifact.NewService(gormDB, artifact.ServiceOpts{Policies: cfg.Policies})
	a, err := svc.Update(id, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved artifact %s (ID %d)\n", a.Name, a.ID)
	return nil
}

func newArtifactTransitionCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "transition <id> <state>",
		Short: "Move an artifact to a new state",
		Long: `Moves an artifact along its lifecycle: To Do -> In Progress -> Approved,
with Approved -> In Progress to reopen. Reopening clones the current
version so the approved snapshot stays untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			return runArtifactTransition(cmd, configPath, id, args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func runArtifactTransition(cmd *cobra.Command, configPath string, id uint, stateName string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	stateID, err := db.StateID(gormDB, stateName)
	if err != nil {
		return err
	}

	svc := artifact.NewService(gormDB, artifact.ServiceOpts{Policies: cfg.Policies})
	a, err := svc.Transition(id, stateID, cfg.Owner)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Artifact %s (ID %d) is now %s\n", a.Name, a.ID, stateName)
	return nil
}

func newArtifactVersionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "versions <id>",
		Short: "List an artifact's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			return runArtifactVersions(cmd, configPath, id)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func runArtifactVersions(cmd *cobra.Command, configPath string, id uint) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	a, err := artifact.Get(gormDB, id)
	if err != nil {
		return err
	}
	versions, err := artifact.Versions(gormDB, a.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tCREATED BY\tCREATED AT\tCURRENT")
	for _, v := range versions {
		current := ""
		if a.CurrentVersionID != nil && *a.CurrentVersionID == v.ID {
			current = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Number, v.CreatedBy,
			v.CreatedAt.Format("2006-01-02 15:04"), current)
	}
	return w.Flush()
}

func parseArtifactID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid artifact ID %q", arg)
	}
	return uint(id), nil
}
