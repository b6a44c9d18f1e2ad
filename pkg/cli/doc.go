/*
Package cli holds the helpers shared by the arbiter commands: output
formatting, batch progress, signal handling and exit codes.

Results that render as rows implement Tabular and print as aligned text,
CSV or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Commands signal outcomes through the returned error; ExitCode maps it to the
process status. A run that leaves cases awaiting human review returns
&ExitError{Code: ExitPending}.

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
