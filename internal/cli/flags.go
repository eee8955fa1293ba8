package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// onlyChanged returns the flags the user actually set, so that unset flags
// do not override the config file or environment.
func onlyChanged(cmd *cobra.Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			fs.AddFlag(f)
		}
	})
	return fs
}
