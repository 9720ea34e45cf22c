/*
Package cli provides helpers shared by the bluetrace commands.

Output Formatting:

Commands accept --format text|json. Results that implement Tabular are
rendered as aligned columns in text mode:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Errors:

ConfigError and CommandError distinguish a bad configuration from a
failed operation; ExitCode maps either to the process exit status.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
