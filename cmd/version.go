// File: cmd/version.go
package cmd

import "github.com/spf13/cobra"

// Version is the application version.
// This value is intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/stickerverse/figmaconvert/cmd.Version=1.0.0"
var Version = "0.3.1"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the figmaconvert version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("figmaconvert " + Version)
		},
	}
}
