package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"fraudstream/internal/config"
	"fraudstream/internal/domain"
	"fraudstream/internal/ingest"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Push one transaction to a running generator over gRPC",
	RunE:  runSend,
}

func init() {
	d := config.Default()
	flags := sendCmd.Flags()
	flags.String("addr", "localhost"+d.Server.GRPCAddr, "Ingestion service address")
	flags.Int64("user", 0, "User id")
	flags.Int64("card", 0, "Card id (random when 0)")
	flags.Float64("value", 0, "Transaction amount")
	flags.String("country", "", "Country (defaults to the user's home country)")
	flags.Int64("timestamp", 0, "Event time in Unix seconds (now when 0)")
	sendCmd.MarkFlagRequired("user")
	sendCmd.MarkFlagRequired("value")
}

func runSend(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	userID, _ := flags.GetInt64("user")
	cardID, _ := flags.GetInt64("card")
	value, _ := flags.GetFloat64("value")
	country, _ := flags.GetString("country")
	ts, _ := flags.GetInt64("timestamp")

	if ts == 0 {
		ts = time.Now().Unix()
	}
	if cardID == 0 {
		cardID = rand.Int63n(99999) + 1
	}
	if country == "" {
		country = domain.CountryForUser(userID)
	}
	tx := domain.Transaction{
		Timestamp:     ts,
		TransactionID: rand.Int63n(999999999) + 1,
		UserID:        userID,
		CardID:        cardID,
		SiteID:        rand.Int63n(10) + 1,
		Value:         value,
		LocationID:    rand.Int63n(10) + 1,
		Country:       country,
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("did not connect: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := ingest.SendTransaction(ctx, conn, tx)
	if err != nil {
		return err
	}
	fmt.Printf("Sent transaction %d for user %d (%.2f, %s): %s\n",
		tx.TransactionID, tx.UserID, tx.Value, tx.Country, resp.GetFields()["message"].GetStringValue())
	return nil
}
