package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"schema-sync/feature/survey"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for schema commands
	dryRunSync   bool
	yesConfirm   bool
	deleteSurvey bool
)

// schemaCmd is the parent command for all response schema operations.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Synchronize, import and administer response schemas",
	Long: `Synchronize response tables with their surveys.

Synchronization is additive: missing tables and columns are created, nothing
is ever dropped or renamed. Drop and rename are separate administrative
commands that require confirmation.`,
}

var schemaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate every response schema and reconcile its table",
	Long: `Regenerates every response schema, adds missing tables and columns and
publishes the new fingerprints.

Examples:
  # Show pending DDL only
  schema sync --dry-run

  # Apply
  schema sync`,
	RunE: runSchemaSync,
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop <slug>",
	Short: "Drop the response table of a survey (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaDrop,
}

var schemaRenameCmd = &cobra.Command{
	Use:   "rename <slug> <old> <new>",
	Short: "Rename a question and its response column, keeping answers",
	Args:  cobra.ExactArgs(3),
	RunE:  runSchemaRename,
}

var schemaImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import YAML survey definitions from the storage bucket",
	RunE:  runSchemaImport,
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every survey definition as YAML to the storage bucket",
	RunE:  runSchemaExport,
}

func init() {
	schemaCmd.AddCommand(schemaSyncCmd, schemaDropCmd, schemaRenameCmd, schemaImportCmd, schemaExportCmd)

	schemaSyncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Only report the pending changes")
	schemaDropCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	schemaDropCmd.Flags().BoolVar(&deleteSurvey, "delete-survey", false, "Also delete the survey and its questions")
	schemaRenameCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(schemaCmd)
}

func runSchemaSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.surveys.Repository().Migrate(ctx); err != nil {
		return err
	}

	reports, err := rt.surveys.SyncAll(ctx, dryRunSync)
	if err != nil {
		return fmt.Errorf("failed to sync schemas: %w", err)
	}
	failed := printSyncReports(rt.logger, reports)

	if dryRunSync {
		rt.logger.Info("Dry-run mode: No changes were made.")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schemas failed to sync", failed, len(reports))
	}
	return nil
}

// printSyncReports logs one line per schema and returns the number of failures.
func printSyncReports(l *zap.Logger, reports []survey.SyncReport) int {
	failed := 0
	for _, r := range reports {
		fields := []zap.Field{zap.String("survey", r.Slug), zap.String("table", r.Table)}
		switch {
		case r.Error != "":
			failed++
			l.Error("Schema sync failed", append(fields, zap.String("error", r.Error))...)
		case r.Plan != nil:
			fields = append(fields,
				zap.Bool("table_exists", r.Plan.TableExists),
				zap.Strings("missing", r.Plan.Missing),
				zap.Strings("extra", r.Plan.Extra))
			if r.Plan.InSync() {
				l.Info("Schema in sync", fields...)
				continue
			}
			l.Info("Pending changes", fields...)
			for _, stmt := range r.Plan.Statements {
				l.Info("Planned statement", zap.String("table", r.Table), zap.String("sql", stmt))
			}
		case r.Result != nil:
			l.Info("Schema synced", append(fields,
				zap.Bool("created", r.Result.Created),
				zap.Strings("added", r.Result.Added),
				zap.Strings("indexes", r.Result.Indexes))...)
		}
	}
	l.Info("Sync report", zap.Int("schemas", len(reports)), zap.Int("failed", failed))
	return failed
}

func runSchemaDrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	slug := args[0]
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Warn("About to drop a response table and every stored answer", zap.String("survey", slug), zap.Bool("delete_survey", deleteSurvey))
	if !confirmDestructiveAction() {
		rt.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	if err := rt.surveys.DropSchema(ctx, slug, deleteSurvey); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", slug, err)
	}
	rt.logger.Info("Response table dropped", zap.String("survey", slug))
	return nil
}

func runSchemaRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	slug, from, to := args[0], args[1], args[2]
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Warn("About to rename a question and its response column",
		zap.String("survey", slug), zap.String("from", from), zap.String("to", to))
	if !confirmDestructiveAction() {
		rt.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	if _, err := rt.surveys.RenameField(ctx, slug, from, to); err != nil {
		return fmt.Errorf("failed to rename %s.%s: %w", slug, from, err)
	}
	rt.logger.Info("Question renamed", zap.String("survey", slug), zap.String("from", from), zap.String("to", to))
	return nil
}

func runSchemaImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	client, err := rt.objectStore()
	if err != nil {
		return err
	}
	if err := rt.surveys.Repository().Migrate(ctx); err != nil {
		return err
	}

	report, err := rt.importer(client).Import(ctx)
	if err != nil {
		return fmt.Errorf("failed to import definitions: %w", err)
	}
	rt.logger.Info("Import finished", zap.Strings("imported", report.Imported), zap.Int("failed", len(report.Failed)))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d definitions failed to import", len(report.Failed))
	}
	return nil
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	client, err := rt.objectStore()
	if err != nil {
		return err
	}
	keys, err := rt.importer(client).Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export definitions: %w", err)
	}
	rt.logger.Info("Export finished", zap.Strings("keys", keys))
	return nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
