package cli

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fraudstream/internal/codec"
	"fraudstream/internal/config"
	"fraudstream/internal/generator"
	"fraudstream/internal/ingest"
	"fraudstream/internal/metrics"
	"fraudstream/internal/publisher"
	"fraudstream/internal/queue"
	"fraudstream/internal/transport"
)

// drainTimeout bounds how long the publisher may keep flushing the queue
// after a shutdown signal.
const drainTimeout = 30 * time.Second

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Emit synthetic transactions onto the transaction topic",
	Long: `Runs the four transaction emitters and publishes everything they produce
to Kafka. A gRPC endpoint accepts extra transactions from outside while the
generator runs.`,
	RunE: runGenerate,
}

func init() {
	d := config.Default()
	flags := generateCmd.Flags()
	flags.Float64("tps", d.Generator.TransactionsPerSecond, "Valid transactions per second")
	flags.Float64("fraud-frequency", d.Generator.FraudFrequency, "Fraud cadence divisor; higher means rarer fraud bursts")
	flags.Int("queue-capacity", d.Generator.QueueCapacity, "Event queue capacity")
	flags.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	flags.String("grpc-addr", d.Server.GRPCAddr, "Listen address for the ingestion service (empty disables it)")

	bindFlag("generator.transactions_per_second", flags.Lookup("tps"))
	bindFlag("generator.fraud_frequency", flags.Lookup("fraud-frequency"))
	bindFlag("generator.queue_capacity", flags.Lookup("queue-capacity"))
	bindFlag("generator.seed", flags.Lookup("seed"))
	bindFlag("server.grpc_addr", flags.Lookup("grpc-addr"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	producer, err := transport.NewProducer(producerConfig(cfg, cfg.Kafka.TransactionsTopic, clientID("generator")))
	if err != nil {
		return err
	}
	defer producer.Close()

	q := queue.New(cfg.Generator.QueueCapacity)
	gen, err := generator.New(generator.Config{
		TransactionsPerSecond: cfg.Generator.TransactionsPerSecond,
		FraudFrequency:        cfg.Generator.FraudFrequency,
		Seed:                  cfg.Generator.Seed,
	}, q)
	if err != nil {
		return err
	}
	pub := publisher.New(q, producer, c, cfg.Verbose)
	ops := metrics.NewServer(cfg.Server.OpsAddr)

	// The publisher outlives the signal so it can drain the queue.
	pubCtx, cancelPub := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelPub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer q.Close()
		return gen.Run(gctx)
	})
	g.Go(func() error {
		return pub.Run(pubCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		q.Close()
		time.AfterFunc(drainTimeout, cancelPub)
		return nil
	})
	g.Go(func() error {
		return ops.Run(gctx)
	})
	if cfg.Server.GRPCAddr != "" {
		srv := ingest.NewServer(q)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.GRPCAddr)
		})
	}

	ops.SetReady(true)
	log.Printf("Generating %.1f tx/s (fraud frequency %.1f) onto %s",
		cfg.Generator.TransactionsPerSecond, cfg.Generator.FraudFrequency, cfg.Kafka.TransactionsTopic)

	err = g.Wait()
	ops.SetReady(false)
	log.Printf("Generated %d transactions, published %d", gen.Count(), pub.Sent())
	return err
}

func producerConfig(cfg *config.Config, topic, id string) transport.ProducerConfig {
	return transport.ProducerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       topic,
		ClientID:    id,
		LingerMs:    cfg.Kafka.LingerMs,
		BatchSize:   cfg.Kafka.BatchSize,
		Compression: cfg.Kafka.Compression,
		Retries:     cfg.Kafka.Retries,
	}
}
