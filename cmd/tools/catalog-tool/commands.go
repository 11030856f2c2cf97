package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/database"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/pkg/registry"
)

const (
	defaultCatalogPath  = "data/universities.json"
	defaultRegistryPath = "configs/activity-registry.json"
	loadTimeout         = 2 * time.Minute
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog-tool",
		Short:         "Maintain the university catalog and activity registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newIndexCmd(), newImportCmd(), newRegistryCmd())
	return root
}

// =============================================================================
// Catalog
// =============================================================================

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog file for malformed or duplicate records",
		RunE: func(cmd *cobra.Command, args []string) error {
			universities, err := loadRecords(cmd.OutOrStdout(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d universities OK\n", file, len(universities))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultCatalogPath, "catalog file (JSON or YAML)")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var file, configPath string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Bulk-load a catalog file into Elasticsearch",
		RunE: func(cmd *cobra.Command, args []string) error {
			universities, err := loadRecords(cmd.OutOrStdout(), file)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
			defer cancel()
			if err := es.Ping(ctx); err != nil {
				return err
			}
			if err := catalog.NewElasticsearchProvider(es.Client, cfg.Catalog.Index).Index(ctx, universities); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d universities into %s\n", len(universities), cfg.Catalog.Index)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultCatalogPath, "catalog file (JSON or YAML)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (defaults to configs/config.yaml)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var file, configPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert a catalog file into the PostgreSQL catalog table",
		RunE: func(cmd *cobra.Command, args []string) error {
			universities, err := loadRecords(cmd.OutOrStdout(), file)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			provider, err := catalog.NewPostgresProvider(pg, cfg.Catalog.Table)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
			defer cancel()
			if err := provider.Upsert(ctx, universities); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d universities into %s\n", len(universities), cfg.Catalog.Table)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultCatalogPath, "catalog file (JSON or YAML)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (defaults to configs/config.yaml)")
	return cmd
}

func loadRecords(w io.Writer, file string) ([]models.University, error) {
	universities, err := catalog.LoadFile(file)
	if err != nil {
		return nil, err
	}
	if problems := catalog.ValidateRecords(universities); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(w, "  -", p)
		}
		return nil, fmt.Errorf("%s has %d invalid records", file, len(problems))
	}
	return universities, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// =============================================================================
// Registry
// =============================================================================

func newRegistryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and edit the activity registry",
	}
	cmd.PersistentFlags().StringVarP(&path, "path", "p", defaultRegistryPath, "activity registry file")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate ids, task types, timeouts and schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}
			problems := reg.Check()
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s has %d problems", path, len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d activities OK\n", path, len(reg.Activities))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List activities with their status and timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}
			for _, a := range reg.Activities {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-12s %-6s %s\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.Version)
			}
			return nil
		},
	}

	var id, field, value string
	update := &cobra.Command{
		Use:   "update",
		Short: "Set status, version, timeout or retries of one activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return err
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s.%s = %s\n", id, field, value)
			return nil
		},
	}
	update.Flags().StringVar(&id, "id", "", "activity id")
	update.Flags().StringVar(&field, "field", "", "status, version, timeout or retries")
	update.Flags().StringVar(&value, "value", "", "new value")
	_ = update.MarkFlagRequired("id")
	_ = update.MarkFlagRequired("field")
	_ = update.MarkFlagRequired("value")

	cmd.AddCommand(check, list, update)
	return cmd
}
