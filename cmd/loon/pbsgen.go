package main

import (
	"github.com/spf13/cobra"

	"loon/internal/pbs"
)

func newPbsGenCmd(a *app) *cobra.Command {
	var (
		outdir string
		plain  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "pbsgen TEMPLATE SAMPLEFILE MAPFILE",
		Short: "Generate a batch of job scripts from a template and CSV tables",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := pbs.NewGenerator(a.log)
			return gen.GenBatch(args[0], args[1], args[2], outdir, !plain, dryRun)
		},
	}

	cmd.Flags().StringVarP(&outdir, "outdir", "o", "./pbs", "Output directory for generated scripts")
	cmd.Flags().BoolVar(&plain, "plain", false, "Name outputs after the sample id without the .pbs suffix")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without writing anything")

	return cmd
}

func newPbsTempCmd(a *app) *cobra.Command {
	var (
		input  string
		output string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "pbstemp",
		Short: "Generate a starter job script template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := pbs.NewGenerator(a.log)
			return gen.GenTemplate(input, output, dryRun)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Template to copy (default: embedded header and commands)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: ./work.pbs)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without writing anything")

	return cmd
}

func newPbsExampleCmd(a *app) *cobra.Command {
	var (
		outdir string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "pbsexample",
		Short: "Write example template, sample and mapping files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := pbs.NewGenerator(a.log)
			return gen.GenExample(outdir, dryRun)
		},
	}

	cmd.Flags().StringVarP(&outdir, "outdir", "o", "./pbs-example", "Output directory for the example files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without writing anything")

	return cmd
}
