// Command ccadmin performs operator tasks against the CloudCoder database:
// schema setup, user import and problem import/export.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ccadmin",
		Short:         "CloudCoder administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInitDBCommand(),
		newImportUsersCommand(),
		newExportProblemCommand(),
		newImportProblemCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
