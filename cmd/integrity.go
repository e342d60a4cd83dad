package cmd

import (
	"context"
	"fmt"

	"schema-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on response tables and storage",
	Long:  `Checks the storage layout and compares every response schema with its table and the shared cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return cmd.Help()
		}
		return runIntegrityChecks(cmd.Context(), true, true)
	},
}

// structureCmd represents the integrity structure command
var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Check and fix the bucket layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false)
	},
}

// schemasCmd represents the integrity schemas command
var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Report drift between response schemas, tables and the shared cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(structureCmd, schemasCmd)

	structureCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the missing bucket and folders")
}

func runIntegrityChecks(ctx context.Context, runStructure, runSchemas bool) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	logg := rt.logger

	client, err := rt.objectStore()
	if err != nil {
		return err
	}
	svc := integrity.NewService(client, rt.cfg.Storage.Bucket, []string{rt.cfg.Engine.DefinitionsPrefix}, logg, rt.surveys)

	if runStructure {
		logg.Info("Checking bucket structure...")
		report, err := svc.CheckStructure(ctx)
		if err != nil {
			return fmt.Errorf("structure check failed: %w", err)
		}

		if report.BucketExists && len(report.Missing) == 0 {
			logg.Info("Structure is intact.")
		} else {
			logg.Warn("Missing folders detected", zap.Bool("bucket_exists", report.BucketExists), zap.Strings("missing", report.Missing))

			if fixFlag {
				logg.Info("Fixing missing folders...")
				if err := svc.FixStructure(ctx, report); err != nil {
					return fmt.Errorf("failed to fix structure: %w", err)
				}
				logg.Info("Structure fixed successfully.")
			} else {
				logg.Info("Run 'integrity structure --fix' to create missing folders.")
			}
		}
	}

	if runSchemas {
		logg.Info("Checking response schemas...")
		report, err := svc.CheckSchemas(ctx)
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}

		for table, tbl := range report.Tables {
			fields := []zap.Field{
				zap.String("table", table),
				zap.String("status", tbl.Status),
				zap.Bool("stale", tbl.Stale),
			}
			if tbl.Status == "ok" {
				logg.Info("Table matches schema", fields...)
				continue
			}
			logg.Warn("Table drift", append(fields,
				zap.Bool("table_exists", tbl.TableExists),
				zap.Strings("missing", tbl.MissingColumns),
				zap.Strings("extra", tbl.ExtraColumns),
				zap.Strings("type_mismatches", tbl.TypeMismatches))...)
		}
		for _, e := range report.Errors {
			logg.Error("Schema check error", zap.String("error", e))
		}
		if report.Matched {
			logg.Info("All response tables match their schemas.")
		} else {
			logg.Warn("Run 'schema sync' to add missing tables and columns.")
		}
	}
	return nil
}
