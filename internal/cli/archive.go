package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fraudstream/internal/archive"
	"fraudstream/internal/codec"
	"fraudstream/internal/config"
	"fraudstream/internal/metrics"
	"fraudstream/internal/transport"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy fraud alerts from the alert topic into PostgreSQL",
	RunE:  runArchive,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List archived alerts for a user",
	RunE:  runAlerts,
}

func init() {
	d := config.Default()
	archiveCmd.Flags().String("dsn", "", "PostgreSQL connection string")
	archiveCmd.Flags().Int("batch-size", d.Postgres.BatchSize, "Alerts per COPY batch")
	bindFlag("postgres.dsn", archiveCmd.Flags().Lookup("dsn"))
	bindFlag("postgres.batch_size", archiveCmd.Flags().Lookup("batch-size"))

	alertsCmd.Flags().Int64("user", 0, "User id")
	alertsCmd.Flags().Int("limit", 20, "Maximum number of alerts")
	alertsCmd.MarkFlagRequired("user")
}

func openStore(ctx context.Context, cfg *config.Config) (*archive.Store, error) {
	if cfg.Postgres.DSN == "" {
		return nil, errors.New("postgres.dsn is not set (use --dsn or FRAUD_POSTGRES_DSN)")
	}
	return archive.NewStore(ctx, cfg.Postgres.DSN)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := codec.ByName(cfg.Kafka.Codec)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	consumer, err := transport.NewConsumer(transport.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.AlertsTopic,
		GroupID:     cfg.Kafka.ArchiveGroupID,
		OffsetReset: cfg.Kafka.OffsetReset,
		ClientID:    clientID("archiver"),
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	archiver := &archive.Archiver{
		Source:        consumer,
		Writer:        store,
		Codec:         c,
		BatchSize:     cfg.Postgres.BatchSize,
		FlushInterval: time.Duration(cfg.Postgres.FlushIntervalMs) * time.Millisecond,
	}
	ops := metrics.NewServer(cfg.Server.OpsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return archiver.Run(gctx)
	})
	g.Go(func() error {
		return ops.Run(gctx)
	})

	ops.SetReady(true)
	log.Printf("Archiving alerts from %s", cfg.Kafka.AlertsTopic)

	err = g.Wait()
	ops.SetReady(false)
	return err
}

func runAlerts(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	alerts, err := store.RecentAlerts(ctx, userID, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Printf("No alerts for user %d\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTYPE\tCARD\tDETAILS")
	for _, a := range alerts {
		fmt.Fprintf(w, "%d\t%s\t%d\t%v\n", a.Timestamp, a.FraudType, a.CardID, a.Details)
	}
	return w.Flush()
}
