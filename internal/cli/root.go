package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankiplace/ankiplace/internal/config"
)

// Version is the release version, overridable at link time.
var Version = "0.3.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the ankiplace CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ankiplace",
		Short: "ankiplace - a shared pixel canvas powered by flashcard reviews",
		Long: `ankiplace serves a shared 32x32 pixel canvas backed by a single
SQLite file. Users earn paint drops by reviewing flashcards and spend
them painting pixels. All writes are serialized through one writer;
run exactly one instance per database file.`,
	}

	cobra.OnInitialize(config.Init)

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the ankiplace version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ankiplace v%s\n", Version)
		},
	})

	return cmd
}
