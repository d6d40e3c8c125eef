package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters/datasource"
)

// addDiscoveryCommands registers one command per driver operation.
func addDiscoveryCommands(root *cobra.Command) {
	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List supported storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), datasource.SupportedAdapters())
		},
	}

	datasourcesCmd := &cobra.Command{
		Use:   "datasources",
		Short: "List configured datasources",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			sources, err := app.datasources.List(cmd.Context())
			if err != nil {
				return nil, err
			}
			out := make([]map[string]string, len(sources))
			for i, ds := range sources {
				out[i] = map[string]string{"name": ds.Name, "type": ds.DatasourceType, "description": ds.Description}
			}
			return out, nil
		}),
	}

	testCmd := &cobra.Command{
		Use:   "test <datasource>",
		Short: "Check connectivity to a datasource",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.TestConnection(cmd.Context(), args[0])
		}),
	}

	databasesCmd := &cobra.Command{
		Use:   "databases <datasource>",
		Short: "List buckets or containers",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.ListDatabases(cmd.Context(), args[0])
		}),
	}

	schemasCmd := &cobra.Command{
		Use:   "schemas <datasource>",
		Short: "List schemas (top-level folders)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.ListSchemas(cmd.Context(), args[0], database)
		}),
	}

	tablesCmd := &cobra.Command{
		Use:   "tables <datasource> <schema>",
		Short: "List tables in a schema",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.ListTables(cmd.Context(), args[0], database, args[1])
		}),
	}

	columnsCmd := &cobra.Command{
		Use:   "columns <datasource> <schema> <table>",
		Short: "Describe a table's columns",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.ListColumns(cmd.Context(), args[0], tableRef(args[1], args[2]))
		}),
	}

	sampleCmd := &cobra.Command{
		Use:   "sample <datasource> <schema> <table>",
		Short: "Print sample rows",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.GetSampleData(cmd.Context(), args[0], tableRef(args[1], args[2]), limit)
		}),
	}

	statsCmd := &cobra.Command{
		Use:   "stats <datasource> <schema> <table> <column>",
		Short: "Profile one column",
		Args:  cobra.ExactArgs(4),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			return app.discovery.GetColumnStats(cmd.Context(), args[0], tableRef(args[1], args[2]), args[3])
		}),
	}

	overlapCmd := &cobra.Command{
		Use:     "overlap <datasource> <schema.table.column> <schema.table.column>",
		Short:   "Measure how many child values occur in a parent column",
		Example: "  ekaya-lake overlap lake sales.orders.customer_id sales.customers.id",
		Args:    cobra.ExactArgs(3),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			child, childColumn, err := parseColumnRef(args[1])
			if err != nil {
				return nil, err
			}
			parent, parentColumn, err := parseColumnRef(args[2])
			if err != nil {
				return nil, err
			}
			return app.discovery.GetColumnValueOverlap(cmd.Context(), args[0], child, childColumn, parent, parentColumn, sampleSize)
		}),
	}

	queryCmd := &cobra.Command{
		Use:   "query <datasource> <sql>",
		Short: "Run a read-only SELECT",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *application, args []string) (any, error) {
			m, err := loadManifest(manifest)
			if err != nil {
				return nil, err
			}
			return app.discovery.ExecuteQuery(cmd.Context(), args[0], args[1], limit, m)
		}),
	}

	for _, cmd := range []*cobra.Command{schemasCmd, tablesCmd, columnsCmd, sampleCmd, statsCmd, overlapCmd} {
		cmd.Flags().StringVar(&database, "database", "", "Bucket or container (defaults to the datasource's)")
	}
	sampleCmd.Flags().IntVar(&limit, "limit", 0, "Rows to return (default from discovery.default_sample_limit, max 1000)")
	queryCmd.Flags().IntVar(&limit, "limit", 0, "Max rows (max 1000)")
	queryCmd.Flags().StringVar(&manifest, "manifest", "", "YAML or JSON file mapping table names to {uri, partitioned}")
	overlapCmd.Flags().IntVar(&sampleSize, "sample-size", 0, "Rows sampled from each side (default from discovery.overlap_sample_size)")

	root.AddCommand(typesCmd, datasourcesCmd, testCmd, databasesCmd, schemasCmd, tablesCmd,
		columnsCmd, sampleCmd, statsCmd, overlapCmd, queryCmd)
}

// withApp builds the application, runs fn and prints its result as JSON.
func withApp(fn func(cmd *cobra.Command, app *application, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := newApplication()
		if err != nil {
			return err
		}
		defer app.logger.Sync() //nolint:errcheck

		result, err := fn(cmd, app, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tableRef(schema, table string) datasource.TableRef {
	return datasource.TableRef{Database: database, Schema: schema, Table: table}
}

// parseColumnRef splits schema.table.column. A two-part table.column
// resolves to the root schema.
func parseColumnRef(s string) (datasource.TableRef, string, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 2:
		return tableRef(datasource.RootSchema, parts[0]), parts[1], nil
	case 3:
		return tableRef(parts[0], parts[1]), parts[2], nil
	}
	return datasource.TableRef{}, "", fmt.Errorf("invalid column reference %q: expected schema.table.column", s)
}

// loadManifest reads a table manifest. JSON is accepted as a subset of YAML.
func loadManifest(path string) (datasource.TableManifest, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var raw map[string]struct {
		URI         string `yaml:"uri"`
		Partitioned bool   `yaml:"partitioned"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m := make(datasource.TableManifest, len(raw))
	for name, entry := range raw {
		if entry.URI == "" {
			return nil, fmt.Errorf("manifest entry %q has no uri", name)
		}
		m[name] = datasource.TableManifestEntry{URI: entry.URI, Partitioned: entry.Partitioned}
	}
	return m, nil
}
