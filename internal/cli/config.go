package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fraudstream/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect fraudstream configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if cfgFile != "" {
		fmt.Printf("# Effective configuration (defaults + %s + FRAUD_* environment)\n", cfgFile)
	} else {
		fmt.Println("# Effective configuration (defaults + FRAUD_* environment)")
	}
	fmt.Print(string(data))
	return nil
}
