/*
Package cli provides command-line utilities for the tessera command.

The cli package holds the pieces the subcommands share: output
formatters, a progress reporter for long exports, and signal handling
for commands that run until interrupted.

Output Formatting:

Command results render as text, JSON, or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

CSV output operates on tabular data:

	table := cli.Table{
		Headers: []string{"experiment", "variant"},
		Rows:    [][]string{{"new_checkout", "treatment"}},
	}
	cli.NewFormatter(cli.FormatCSV).FormatTo(os.Stdout, table)

Progress Reporting:

Long-running exports report progress to stderr:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)
	for i := int64(0); i < total; i++ {
		progress.Update(i + 1)
	}
	progress.Finish()

Signal Handling:

Commands that run until interrupted derive a signal-scoped context:

	ctx := cli.SetupSignalHandler()
	<-ctx.Done()
*/
package cli
