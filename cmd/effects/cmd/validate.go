package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration and registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fail(2, "config: %w", err)
		}
		if _, err := loadRegistry(); err != nil {
			return fail(2, "registry: %w", err)
		}
		fmt.Printf("config ok (digest %s)\n", cfg.Digest())
		fmt.Println("registry ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
