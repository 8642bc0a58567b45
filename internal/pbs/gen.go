// internal/pbs/gen.go

// Package pbs generates batch job scripts from a template and CSV tables
// and submits them to a PBS queue, locally or on the active host.
package pbs

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"loon/internal/apperr"
	"loon/internal/utils"
)

//go:embed data
var exampleData embed.FS

const (
	headerFile   = "data/PBS_HEADER.txt"
	cmdsFile     = "data/PBS_CMDS.txt"
	templateFile = "data/pbs-template.pbs"
	sampleFile   = "data/samplefile.csv"
	mappingFile  = "data/mapping.csv"
)

type Generator struct {
	log *logrus.Entry
	out io.Writer
}

func NewGenerator(log *logrus.Entry) *Generator {
	return &Generator{log: log, out: os.Stdout}
}

// normalizeLF rewrites all line endings to LF; PBS rejects CRLF scripts.
func normalizeLF(data []byte) []byte {
	return []byte(strings.ReplaceAll(string(data), "\r\n", "\n"))
}

// GenTemplate writes a starter job script to output, either copying the
// given template or assembling the embedded default header and commands.
func (g *Generator) GenTemplate(input, output string, dryRun bool) error {
	if output == "" {
		output = filepath.Join(".", "work.pbs")
	}
	fmt.Fprintf(g.out, "=> Generating %s\n", output)
	if dryRun {
		return nil
	}
	if utils.IsFile(output) {
		fmt.Fprintln(g.out, "Warning: the output file exists, it will be overwritten.")
	}

	var content []byte
	if input == "" {
		header, err := exampleData.ReadFile(headerFile)
		if err != nil {
			return apperr.New(apperr.ConfigError, "failed to read embedded header", err)
		}
		cmds, err := exampleData.ReadFile(cmdsFile)
		if err != nil {
			return apperr.New(apperr.ConfigError, "failed to read embedded commands", err)
		}
		content = append(header, cmds...)
	} else {
		data, err := os.ReadFile(utils.ExpandUser(input))
		if err != nil {
			return apperr.Newf(apperr.MissingFileError, "cannot find the template file %s", input)
		}
		content = data
	}

	if err := os.WriteFile(output, normalizeLF(content), 0644); err != nil {
		return apperr.New(apperr.ConfigError, "failed to write template", err)
	}
	fmt.Fprintln(g.out, "=> Done.")
	return nil
}

// mapping is one label -> sample column association.
type mapping struct {
	Label  string
	Column int
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Newf(apperr.MissingFileError, "file %s does not exist", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.New(apperr.ConfigError,
			fmt.Sprintf("failed to parse %s", path), err)
	}
	return rows, nil
}

// validateMappings checks every mapping row before any output is
// written: two columns, an integer index, and the index addressing a
// valid column of every sample row. The first bad row fails the batch.
func validateMappings(mapRows [][]string, sampleRows [][]string) ([]mapping, error) {
	mappings := make([]mapping, 0, len(mapRows))
	for i, row := range mapRows {
		if len(row) != 2 {
			return nil, apperr.Newf(apperr.ConfigError,
				"mapping row %d: exactly two columns are required", i+1)
		}
		col, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, apperr.Newf(apperr.ConfigError,
				"mapping row %d: the second column must be an integer", i+1)
		}
		for j, sample := range sampleRows {
			if col < 0 || col >= len(sample) {
				return nil, apperr.Newf(apperr.ConfigError,
					"mapping row %d: column %d out of range for sample row %d (label %s)",
					i+1, col, j+1, row[0])
			}
		}
		mappings = append(mappings, mapping{Label: row[0], Column: col})
	}
	return mappings, nil
}

// GenBatch produces one job script per sample row by literal label
// substitution into the template.
func (g *Generator) GenBatch(template, samplefile, mapfile, outdir string, pbsMode, dryRun bool) error {
	if err := utils.EnsureDir(outdir); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create output directory", err)
	}
	for _, f := range []string{template, samplefile, mapfile} {
		if !utils.IsFile(f) {
			return apperr.Newf(apperr.MissingFileError, "file %s does not exist", f)
		}
	}

	fmt.Fprintln(g.out, "=====================")
	fmt.Fprintln(g.out, "Output path : "+outdir)
	if pbsMode {
		fmt.Fprintln(g.out, "PBS Template: "+template)
	} else {
		fmt.Fprintln(g.out, "Template: "+template)
	}
	fmt.Fprintln(g.out, "Sample file : "+samplefile)
	fmt.Fprintln(g.out, "Mapping file: "+mapfile)
	fmt.Fprintln(g.out, "=====================")

	if dryRun {
		return nil
	}

	g.log.Infof("reading %s", samplefile)
	sampleRows, err := readCSV(samplefile)
	if err != nil {
		return err
	}
	g.log.Infof("reading %s", mapfile)
	mapRows, err := readCSV(mapfile)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(sampleRows))
	for _, row := range sampleRows {
		if len(row) == 0 {
			continue
		}
		if _, dup := seen[row[0]]; dup {
			return apperr.Newf(apperr.ConfigError,
				"the first sample column is not unique: %s", row[0])
		}
		seen[row[0]] = struct{}{}
	}

	mappings, err := validateMappings(mapRows, sampleRows)
	if err != nil {
		return err
	}

	g.log.Infof("reading %s", template)
	tmpl, err := os.ReadFile(template)
	if err != nil {
		return apperr.New(apperr.MissingFileError,
			fmt.Sprintf("file %s does not exist", template), err)
	}

	fmt.Fprintln(g.out, "Generating...")
	for _, row := range sampleRows {
		if len(row) == 0 {
			continue
		}
		name := row[0]
		if pbsMode {
			name += ".pbs"
		}
		outPath := filepath.Join(outdir, name)
		g.log.Infof("generating %s", outPath)

		content := string(tmpl)
		for _, m := range mappings {
			content = strings.ReplaceAll(content, m.Label, row[m.Column])
		}
		if err := os.WriteFile(outPath, normalizeLF([]byte(content)), 0644); err != nil {
			return apperr.New(apperr.ConfigError,
				fmt.Sprintf("failed to write %s", outPath), err)
		}
	}
	fmt.Fprintln(g.out, "Done.")
	return nil
}

// GenExample drops the embedded example template, sample table and
// mapping table into outdir as a starting point.
func (g *Generator) GenExample(outdir string, dryRun bool) error {
	if err := utils.EnsureDir(outdir); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create output directory", err)
	}

	fmt.Fprintln(g.out, "=====================")
	fmt.Fprintln(g.out, "Output path : "+outdir)
	fmt.Fprintln(g.out, "PBS Template: "+filepath.Join(outdir, filepath.Base(templateFile)))
	fmt.Fprintln(g.out, "Sample file : "+filepath.Join(outdir, filepath.Base(sampleFile)))
	fmt.Fprintln(g.out, "Mapping file: "+filepath.Join(outdir, filepath.Base(mappingFile)))
	fmt.Fprintln(g.out, "=====================")
	if dryRun {
		return nil
	}

	for _, name := range []string{templateFile, sampleFile, mappingFile} {
		data, err := exampleData.ReadFile(name)
		if err != nil {
			return apperr.New(apperr.ConfigError, "failed to read embedded example", err)
		}
		dst := filepath.Join(outdir, filepath.Base(name))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return apperr.New(apperr.ConfigError,
				fmt.Sprintf("failed to write %s", dst), err)
		}
	}
	fmt.Fprintln(g.out, "Done.")
	return nil
}
