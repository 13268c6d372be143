package cli

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fraudstream/internal/codec"
	"fraudstream/internal/config"
	"fraudstream/internal/dedup"
	"fraudstream/internal/detector"
	"fraudstream/internal/metrics"
	"fraudstream/internal/transport"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Consume transactions and publish fraud alerts",
	Long: `Reads the transaction topic as part of a consumer group, evaluates the
HighFrequency, HighValue and DifferentCountry rules against each user's
history and publishes alerts to the alert topic.`,
	RunE: runDetect,
}

func init() {
	d := config.Default()
	flags := detectCmd.Flags()
	flags.String("group", d.Kafka.GroupID, "Consumer group id")
	flags.String("offset-reset", d.Kafka.OffsetReset, "Where a new group starts reading (earliest or latest)")
	flags.String("policy", d.Detector.Policy, "Which matches become alerts: last-match, first-match or all")
	flags.Int64("retention", d.Detector.RetentionSeconds, "Seconds of per-user history to keep (0 keeps everything)")
	flags.StringSlice("redis", nil, "Redis addresses for redelivery dedup (empty disables it)")

	bindFlag("kafka.group_id", flags.Lookup("group"))
	bindFlag("kafka.offset_reset", flags.Lookup("offset-reset"))
	bindFlag("detector.policy", flags.Lookup("policy"))
	bindFlag("detector.retention_seconds", flags.Lookup("retention"))
	bindFlag("redis.addrs", flags.Lookup("redis"))
}

func runDetect(cmd *cobra.Command, args []string) error {
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

	id := clientID("detector")
	consumer, err := transport.NewConsumer(transport.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.TransactionsTopic,
		GroupID:     cfg.Kafka.GroupID,
		OffsetReset: cfg.Kafka.OffsetReset,
		ClientID:    id,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	producer, err := transport.NewProducer(producerConfig(cfg, cfg.Kafka.AlertsTopic, id))
	if err != nil {
		return err
	}
	defer producer.Close()

	var guard dedup.Guard = dedup.Noop{}
	if len(cfg.Redis.Addrs) > 0 {
		r, err := dedup.NewRedis(ctx, dedup.RedisConfig{
			Addrs:  cfg.Redis.Addrs,
			Prefix: cfg.Redis.Prefix,
			TTL:    time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		guard = r
	}
	defer guard.Close()

	runner := &detector.Runner{
		Source:   consumer,
		Alerts:   producer,
		Codec:    c,
		Guard:    guard,
		Detector: detector.New(cfg.DetectorSettings()),
		Verbose:  cfg.Verbose,
	}
	ops := metrics.NewServer(cfg.Server.OpsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return ops.Run(gctx)
	})

	ops.SetReady(true)
	log.Printf("Detecting fraud on %s, alerts to %s (policy %s)",
		cfg.Kafka.TransactionsTopic, cfg.Kafka.AlertsTopic, cfg.Detector.Policy)

	err = g.Wait()
	ops.SetReady(false)
	return err
}
