package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"image-pipeline/internal/startup"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		if versionShort {
			fmt.Println(startup.Version)
			return
		}
		fmt.Printf("image-pipeline %s\n", startup.Version)
		fmt.Printf("Commit: %s\n", startup.Commit)
		fmt.Printf("Built: %s\n", startup.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "show only the version number")
}
