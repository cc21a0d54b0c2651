package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wellcheck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("wellcheck version 0.4.0")
	},
}
