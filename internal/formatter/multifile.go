package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tordrt/keygraph/internal/model"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a model to a directory: an overview plus one
// file per table
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the model to multiple files
func (f *MultiFileFormatter) Format(m *model.Model) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) { f.writeOverview(w, m) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range m.Tables() {
		err := f.writeFile(table.Name, func(w io.Writer) {
			if f.OutputFormat == formatMarkdown {
				NewMarkdownFormatter(w).FormatTable(w, m, table)
				return
			}
			NewTextFormatter(w).formatTable(m, table)
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.getFileExtension()))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

// writeOverview lists the tables alphabetically with the tables they reference
func (f *MultiFileFormatter) writeOverview(w io.Writer, m *model.Model) {
	ext := f.getFileExtension()
	sep := ","
	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(w, "# Key Model Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
		sep = ", "
	} else {
		_, _ = fmt.Fprintf(w, "KEY MODEL OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", ext)
	}

	names := m.TableNames()
	slices.Sort(names)

	for _, name := range names {
		if f.OutputFormat == formatMarkdown {
			_, _ = fmt.Fprintf(w, "- **%s**", name)
		} else {
			_, _ = fmt.Fprint(w, name)
		}
		if pk, ok := m.PK(name); ok {
			_, _ = fmt.Fprintf(w, " [PK %s]", pk)
		}

		var targets []string
		for _, fk := range m.ForeignKeysFrom(name) {
			if !slices.Contains(targets, fk.ParentTable) {
				targets = append(targets, fk.ParentTable)
			}
		}
		if len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, sep))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
