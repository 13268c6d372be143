// Package cli wires the pipeline components into the fraudstream commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fraudstream/internal/config"
)

var (
	cfgFile string
	v       = viper.New()
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "fraudstream",
		Short: "Real-time transaction fraud monitoring",
		Long: `fraudstream generates a synthetic card transaction stream onto Kafka and
flags fraudulent patterns in it as they arrive.

Run "generate" and "detect" side by side; "archive" optionally records
alerts in PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.BoolP("verbose", "v", false, "Log every transaction and alert")
	flags.StringSlice("brokers", config.Default().Kafka.Brokers, "Kafka bootstrap servers")
	flags.String("codec", config.Default().Kafka.Codec, "Wire format for messages (json or proto)")
	flags.String("ops-addr", config.Default().Server.OpsAddr, "Listen address for /metrics and /health")

	bindFlag("verbose", flags.Lookup("verbose"))
	bindFlag("kafka.brokers", flags.Lookup("brokers"))
	bindFlag("kafka.codec", flags.Lookup("codec"))
	bindFlag("server.ops_addr", flags.Lookup("ops-addr"))
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// bindFlag makes a flag override the config key when it is set explicitly.
func bindFlag(key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// clientID gives each process a distinct Kafka client.id.
func clientID(role string) string {
	return fmt.Sprintf("fraudstream-%s-%s", role, uuid.NewString()[:8])
}
