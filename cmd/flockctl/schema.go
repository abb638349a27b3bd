package main

import (
	"fmt"
	"os"
	"time"

	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/spf13/cobra"
)

var (
	schemaVersionFlag string
	schemaDialectFlag string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate data schemas",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a schema file (default: the built-in church schema)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemaValidate,
}

var schemaPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print a stored schema version (default: latest)",
	Args:  cobra.NoArgs,
	RunE:  runSchemaPrint,
}

var schemaDDLCmd = &cobra.Command{
	Use:   "ddl [file]",
	Short: "Print the CREATE TABLE statements for a schema file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemaDDL,
}

func init() {
	schemaPrintCmd.Flags().StringVar(&schemaVersionFlag, "version", "", "Schema version to print")
	schemaDDLCmd.Flags().StringVar(&schemaDialectFlag, "dialect", "postgres", "SQL dialect (postgres, sqlite, sqlite3)")

	schemaCmd.AddCommand(schemaValidateCmd)
	schemaCmd.AddCommand(schemaPrintCmd)
	schemaCmd.AddCommand(schemaDDLCmd)
}

// readDSL returns the DSL of the file named in args, or the church schema
func readDSL(args []string) (string, error) {
	if len(args) == 0 {
		return schemas.Church(), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), nil
}

// offlineSchemaService compiles schemas without a database
func offlineSchemaService() (*services.SchemaService, error) {
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL engine: %w", err)
	}
	return services.NewSchemaService(nil, celEngine), nil
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	dsl, err := readDSL(args)
	if err != nil {
		return err
	}
	svc, err := offlineSchemaService()
	if err != nil {
		return err
	}

	schema, err := svc.Compile(dsl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema is valid: %d enums, %d models (checksum %s)\n",
		len(schema.Enums), len(schema.Models), schema.Checksum)
	return nil
}

func runSchemaPrint(cmd *cobra.Command, args []string) error {
	l, err := openLocal(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()

	schema, err := l.schemas.GetSchemaEntity(cmd.Context(), schemaVersionFlag)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "// version %s, checksum %s, created %s\n",
		schema.Version, schema.Checksum, schema.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprint(out, schema.DSL)
	return nil
}

func runSchemaDDL(cmd *cobra.Command, args []string) error {
	dsl, err := readDSL(args)
	if err != nil {
		return err
	}
	svc, err := offlineSchemaService()
	if err != nil {
		return err
	}

	statements, err := svc.GenerateDDL(dsl, schemaDialectFlag)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
	}
	return nil
}
