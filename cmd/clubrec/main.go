// Command clubrec serves club recommendations and ingests the club catalog.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/clubrec/internal/config"
)

var envName string

var rootCmd = &cobra.Command{
	Use:           "clubrec",
	Short:         "Semantic club recommendation service",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runServe,
}

func init() {
	config.LoadDotEnv()
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(),
		"config environment; reads config/<env>.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
