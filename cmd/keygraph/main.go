package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/keygraph"
	"github.com/tordrt/keygraph/internal/check"
	"github.com/tordrt/keygraph/internal/config"
	"github.com/tordrt/keygraph/internal/formatter"
	"github.com/tordrt/keygraph/internal/model"
	"github.com/tordrt/keygraph/internal/schema"
)

var (
	configPath   string
	dbURL        string
	mysqlURL     string
	sqlitePath   string
	snapshotFile string
	outputFile   string
	outputDir    string
	tables       string
	exclude      string
	schemaName   string
	format       string
	logLevel     string

	concurrency    int
	rowCounts      bool
	direction      string
	snapshotFormat string
)

// errChecksFailed makes examine exit non-zero without printing usage.
var errChecksFailed = errors.New("constraint checks failed")

// cfg is loaded before every command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "keygraph",
	Short: "Inspect and check the keys of a relational database",
	Long: `keygraph loads the single-column primary and foreign keys of a PostgreSQL,
MySQL, or SQLite database into a key graph, checks them against the data,
suggests key candidates and plans joins along foreign keys.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Print tables and their keys",
	Args:  cobra.NoArgs,
	RunE:  runKeys,
}

var examineCmd = &cobra.Command{
	Use:   "examine",
	Short: "Check every primary key for uniqueness and every foreign key for inclusion",
	Args:  cobra.NoArgs,
	RunE:  runExamine,
}

var pkCandidatesCmd = &cobra.Command{
	Use:   "pk-candidates <table>",
	Short: "List the columns of a table that could serve as its primary key",
	Args:  cobra.ExactArgs(1),
	RunE:  runPKCandidates,
}

var fkCandidatesCmd = &cobra.Command{
	Use:   "fk-candidates <child> <parent>",
	Short: "List the columns of child whose values all appear in the primary key of parent",
	Args:  cobra.ExactArgs(2),
	RunE:  runFKCandidates,
}

var flattenCmd = &cobra.Command{
	Use:   "flatten <table>",
	Short: "Plan the joins that flatten a table with its parents or children",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlatten,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write tables and keys as json, yaml or msgpack",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (optional)")
	pf.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	pf.StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string")
	pf.StringVar(&sqlitePath, "sqlite", "", "SQLite database file path")
	pf.StringVar(&snapshotFile, "snapshot-file", "", "Read tables and keys from a snapshot instead of a database")
	pf.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	pf.StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	pf.StringVarP(&exclude, "exclude", "x", "", "Tables to leave out (comma-separated, optional)")
	pf.StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	pf.StringVarP(&format, "format", "f", "text", "Output format: text or markdown")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	keysCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")

	examineCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Checks in flight (default from config)")
	examineCmd.Flags().BoolVar(&rowCounts, "row-counts", false, "Report the row count of each checked table")

	flattenCmd.Flags().StringVar(&direction, "direction", "parents", "Follow foreign keys toward parents or children")

	snapshotCmd.Flags().StringVar(&snapshotFormat, "snapshot-format", "json", "Snapshot encoding: json, yaml or msgpack")

	rootCmd.AddCommand(keysCmd, examineCmd, pkCandidatesCmd, fkCandidatesCmd, flattenCmd, snapshotCmd)
}

// setup loads the configuration and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if schemaName == "" {
		schemaName = cfg.Database.Schema
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func newLogger(w io.Writer, level, logFormat string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// resolveDatabaseURL turns the database flags, or the configured URL when
// none is given, into a keygraph URL.
func resolveDatabaseURL() (string, error) {
	dbCount := 0
	for _, v := range []string{dbURL, mysqlURL, sqlitePath} {
		if v != "" {
			dbCount++
		}
	}
	if dbCount > 1 {
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}

	switch {
	case sqlitePath != "":
		return "sqlite://" + sqlitePath, nil
	case mysqlURL != "":
		if strings.HasPrefix(mysqlURL, "mysql://") {
			return mysqlURL, nil
		}
		return "mysql://" + mysqlURL, nil
	case dbURL != "":
		return dbURL, nil
	case cfg != nil && cfg.Database.URL != "":
		return cfg.Database.URL, nil
	}
	return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
}

// parseTableList splits a comma-separated flag value, dropping blanks.
func parseTableList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// snapshotFormatFor infers the encoding of a snapshot file from its extension.
func snapshotFormatFor(path string) (schema.Format, error) {
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "mp", "msgpack":
		return schema.FormatMsgpack, nil
	default:
		return schema.ParseFormat(ext)
	}
}

// openDatabase connects to the configured database. Commands that need
// table data use it directly.
func openDatabase(ctx context.Context) (*keygraph.Database, error) {
	if snapshotFile != "" {
		return nil, fmt.Errorf("this command reads table data and cannot run on --snapshot-file")
	}
	url, err := resolveDatabaseURL()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ModelOptions()
	if err != nil {
		return nil, err
	}
	return keygraph.Open(ctx, url, &keygraph.Options{
		Tables:        parseTableList(tables),
		ExcludeTables: parseTableList(exclude),
		SchemaName:    schemaName,
		Model:         opts,
	})
}

// loadModel returns the model of --snapshot-file, or of the database. The
// close func must be called once the model is no longer used.
func loadModel(ctx context.Context) (*model.Model, func(), error) {
	if snapshotFile == "" {
		database, err := openDatabase(ctx)
		if err != nil {
			return nil, nil, err
		}
		return database.Model, func() { closeDatabase(database) }, nil
	}

	snapFmt, err := snapshotFormatFor(snapshotFile)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(snapshotFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	opts, err := cfg.ModelOptions()
	if err != nil {
		return nil, nil, err
	}
	m, err := keygraph.ReadSnapshot(f, snapFmt, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return m, func() {}, nil
}

func closeDatabase(database *keygraph.Database) {
	if err := database.Close(); err != nil {
		slog.Warn("failed to close database connection", "error", err)
	}
}

// withOutput runs write against stdout or --output.
func withOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	if outputFile == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// withFormatter runs write with the formatter selected by --format.
func withFormatter(cmd *cobra.Command, write func(formatter.Formatter) error) error {
	return withOutput(cmd, func(w io.Writer) error {
		f, err := formatter.New(format, w)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	})
}

func runKeys(cmd *cobra.Command, _ []string) error {
	m, done, err := loadModel(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	if outputDir != "" {
		if outputFile != "" {
			return fmt.Errorf("cannot use both --output-dir and --output flags")
		}
		outFormat := format
		if outFormat == "md" {
			outFormat = "markdown"
		}
		if err := formatter.NewMultiFileFormatter(outputDir, outFormat).Format(m); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}
	return withFormatter(cmd, func(f formatter.Formatter) error { return f.Format(m) })
}

func runExamine(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if cfg.Check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Check.Timeout)
		defer cancel()
	}

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDatabase(database)

	n := cfg.Check.Concurrency
	if cmd.Flags().Changed("concurrency") {
		n = concurrency
	}
	report := database.Examine(ctx, check.ExamineOptions{Concurrency: n, RowCounts: rowCounts})
	slog.Info("examined keys", "checks", len(report.Results), "failed", len(report.Failures()))

	if err := withFormatter(cmd, func(f formatter.Formatter) error { return f.FormatReport(report) }); err != nil {
		return err
	}
	if !report.Passed() {
		return errChecksFailed
	}
	return nil
}

func runPKCandidates(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDatabase(database)

	t, ok := database.Model.Table(args[0])
	if !ok {
		return &model.KeyError{Op: "primary key candidates", Kind: model.ErrUnknownTable, Table: args[0]}
	}
	cands, err := check.PKCandidates(cmd.Context(), t.Relation)
	if err != nil {
		return err
	}
	return withFormatter(cmd, func(f formatter.Formatter) error {
		return f.FormatCandidates("primary key candidates of "+t.Name, cands)
	})
}

func runFKCandidates(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDatabase(database)

	cands, err := check.FKCandidates(cmd.Context(), database.Model, args[0], args[1])
	if err != nil {
		return err
	}
	return withFormatter(cmd, func(f formatter.Formatter) error {
		return f.FormatCandidates(fmt.Sprintf("foreign key candidates from %s to %s", args[0], args[1]), cands)
	})
}

func runFlatten(cmd *cobra.Command, args []string) error {
	dir, err := model.ParseDirection(direction)
	if err != nil {
		return err
	}
	m, done, err := loadModel(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	plan, err := m.Flatten(args[0], dir)
	if errors.Is(err, model.ErrCycleAmbiguity) {
		return fmt.Errorf("%w\nreachable from %s: %s\nset model.cycles to \"first\" to keep the first declared path",
			err, args[0], strings.Join(m.Reachable(args[0], dir), ", "))
	}
	if err != nil {
		return err
	}
	return withFormatter(cmd, func(f formatter.Formatter) error { return f.FormatPlan(plan) })
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	snapFmt, err := schema.ParseFormat(snapshotFormat)
	if err != nil {
		return err
	}
	m, done, err := loadModel(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	return withOutput(cmd, func(w io.Writer) error {
		return keygraph.WriteSnapshot(w, m, snapFmt)
	})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
