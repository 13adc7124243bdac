package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду buildflow со всеми подкомандами.
//
// Значения глобальных флагов переносятся в app перед выполнением команды;
// заданные в app значения служат умолчаниями.
func NewRootCmd(app *App, version string) *cobra.Command {
	rootDir := app.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	jsonOutput := app.JSON

	rootCmd := &cobra.Command{
		Use:           "buildflow",
		Short:         "buildflow — dependency-ordered build pipeline for .NET libraries",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.RootDir = rootDir
			app.JSON = jsonOutput
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&rootDir, "root", rootDir, "Repository root directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", jsonOutput, "Output in JSON format")

	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)

	rootCmd.AddCommand(
		NewRunCmd(app),
		NewTargetsCmd(app),
		NewGraphCmd(app),
		NewHistoryCmd(app),
		NewWatchCmd(app),
		NewServeCmd(app),
	)

	return rootCmd
}
