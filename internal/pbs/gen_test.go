package pbs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loon/internal/apperr"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testGenerator() (*Generator, *bytes.Buffer) {
	var out bytes.Buffer
	return &Generator{log: testLog(), out: &out}, &out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenTemplateEmbeddedDefault(t *testing.T) {
	g, _ := testGenerator()
	output := filepath.Join(t.TempDir(), "work.pbs")

	require.NoError(t, g.GenTemplate("", output, false))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#PBS")
	assert.NotContains(t, string(data), "\r\n")
}

func TestGenTemplateFromInput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "custom.pbs", "#PBS -N test\r\necho hi\r\n")
	output := filepath.Join(dir, "out.pbs")

	g, _ := testGenerator()
	require.NoError(t, g.GenTemplate(input, output, false))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "#PBS -N test\necho hi\n", string(data))
}

func TestGenTemplateMissingInput(t *testing.T) {
	g, _ := testGenerator()
	err := g.GenTemplate(filepath.Join(t.TempDir(), "nope.pbs"),
		filepath.Join(t.TempDir(), "out.pbs"), false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.MissingFileError))
}

func TestGenTemplateDryRun(t *testing.T) {
	g, out := testGenerator()
	output := filepath.Join(t.TempDir(), "work.pbs")

	require.NoError(t, g.GenTemplate("", output, true))
	assert.NoFileExists(t, output)
	assert.Contains(t, out.String(), "=> Generating")
}

func batchFixture(t *testing.T) (template, samples, mappings, outdir string) {
	t.Helper()
	dir := t.TempDir()
	template = writeFile(t, dir, "tmpl.pbs",
		"#PBS -N {sample}\nalign {fq1} {fq2}\n")
	samples = writeFile(t, dir, "samples.csv",
		"s1,s1_R1.fq,s1_R2.fq\ns2,s2_R1.fq,s2_R2.fq\n")
	mappings = writeFile(t, dir, "mapping.csv",
		"{sample},0\n{fq1},1\n{fq2},2\n")
	outdir = filepath.Join(dir, "out")
	return
}

func TestGenBatch(t *testing.T) {
	template, samples, mappings, outdir := batchFixture(t)

	g, _ := testGenerator()
	require.NoError(t, g.GenBatch(template, samples, mappings, outdir, true, false))

	data, err := os.ReadFile(filepath.Join(outdir, "s1.pbs"))
	require.NoError(t, err)
	assert.Equal(t, "#PBS -N s1\nalign s1_R1.fq s1_R2.fq\n", string(data))

	data, err = os.ReadFile(filepath.Join(outdir, "s2.pbs"))
	require.NoError(t, err)
	assert.Equal(t, "#PBS -N s2\nalign s2_R1.fq s2_R2.fq\n", string(data))
}

func TestGenBatchPlainNames(t *testing.T) {
	template, samples, mappings, outdir := batchFixture(t)

	g, _ := testGenerator()
	require.NoError(t, g.GenBatch(template, samples, mappings, outdir, false, false))

	assert.FileExists(t, filepath.Join(outdir, "s1"))
	assert.NoFileExists(t, filepath.Join(outdir, "s1.pbs"))
}

func TestGenBatchMissingInput(t *testing.T) {
	template, samples, _, outdir := batchFixture(t)

	g, _ := testGenerator()
	err := g.GenBatch(template, samples, filepath.Join(t.TempDir(), "nope.csv"), outdir, true, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.MissingFileError))
}

func TestGenBatchDuplicateSampleIDs(t *testing.T) {
	template, _, mappings, outdir := batchFixture(t)
	samples := writeFile(t, t.TempDir(), "samples.csv",
		"s1,a,b\ns1,c,d\n")

	g, _ := testGenerator()
	err := g.GenBatch(template, samples, mappings, outdir, true, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ConfigError))
	assert.Contains(t, err.Error(), "not unique")
}

func TestGenBatchBadMappingColumns(t *testing.T) {
	template, samples, _, outdir := batchFixture(t)
	mappings := writeFile(t, t.TempDir(), "mapping.csv",
		"{sample},0,extra\n")

	g, _ := testGenerator()
	err := g.GenBatch(template, samples, mappings, outdir, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two columns")
}

func TestGenBatchNonIntegerIndex(t *testing.T) {
	template, samples, _, outdir := batchFixture(t)
	mappings := writeFile(t, t.TempDir(), "mapping.csv",
		"{sample},first\n")

	g, _ := testGenerator()
	err := g.GenBatch(template, samples, mappings, outdir, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestGenBatchIndexOutOfRange(t *testing.T) {
	template, samples, _, outdir := batchFixture(t)
	mappings := writeFile(t, t.TempDir(), "mapping.csv",
		"{sample},0\n{fq1},9\n")

	g, _ := testGenerator()
	err := g.GenBatch(template, samples, mappings, outdir, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	// Validation failed before any script was written.
	entries, readErr := os.ReadDir(outdir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestGenBatchDryRun(t *testing.T) {
	template, samples, mappings, outdir := batchFixture(t)

	g, out := testGenerator()
	require.NoError(t, g.GenBatch(template, samples, mappings, outdir, true, true))

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, out.String(), "Output path : "+outdir)
}

func TestGenExample(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "example")

	g, _ := testGenerator()
	require.NoError(t, g.GenExample(outdir, false))

	assert.FileExists(t, filepath.Join(outdir, "pbs-template.pbs"))
	assert.FileExists(t, filepath.Join(outdir, "samplefile.csv"))
	assert.FileExists(t, filepath.Join(outdir, "mapping.csv"))
}

func TestGenExampleDryRun(t *testing.T) {
	outdir := filepath.Join(t.TempDir(), "example")

	g, _ := testGenerator()
	require.NoError(t, g.GenExample(outdir, true))

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenExampleRoundTrip(t *testing.T) {
	// The shipped example files must generate cleanly with themselves.
	outdir := filepath.Join(t.TempDir(), "example")
	g, _ := testGenerator()
	require.NoError(t, g.GenExample(outdir, false))

	batchDir := filepath.Join(t.TempDir(), "batch")
	require.NoError(t, g.GenBatch(
		filepath.Join(outdir, "pbs-template.pbs"),
		filepath.Join(outdir, "samplefile.csv"),
		filepath.Join(outdir, "mapping.csv"),
		batchDir, true, false))

	entries, err := os.ReadDir(batchDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
