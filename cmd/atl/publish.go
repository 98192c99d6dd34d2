package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/atelier/internal/project"
	"github.com/zulandar/atelier/internal/publish"
)

func newPublishCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "publish <project>",
		Short: "Sync approved artifacts to the docs repository",
		Long: `Pushes every approved artifact of the project to the configured GitHub
repository, one file per artifact. Unchanged files are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	return cmd
}

func runPublish(cmd *cobra.Command, configPath, projectName string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	token := os.Getenv(cfg.Publish.TokenEnv)
	if token == "" {
		return fmt.Errorf("GitHub token not set: export %s", cfg.Publish.TokenEnv)
	}

	p, err := project.GetByName(gormDB, projectName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	publisher, err := publish.New(ctx, publish.Opts{
		Config: cfg.Publish,
		Token:  token,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Publishing approved artifacts of %s to %s/%s...\n",
		p.Name, cfg.Publish.Owner, cfg.Publish.Repo)

	result, err := publisher.SyncProject(ctx, gormDB, p.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Done: %d created, %d updated, %d unchanged\n",
		result.Created, result.Updated, result.Skipped)
	return nil
}
