package domain

import "strconv"

const (
	TopicTransactions = "transaction"
	TopicAlerts       = "fraudulent-transaction"
)

// Countries is the closed set of countries a transaction can originate from.
// Order matters: the generator derives a user's home country from its index
// and the different-country pattern picks the next entry.
var Countries = []string{"USA", "Canada", "Germany", "France", "UK", "Brazil", "Australia"}

type Transaction struct {
	Timestamp     int64   `json:"timestamp"`
	TransactionID int64   `json:"transaction_id"`
	UserID        int64   `json:"user_id"`
	CardID        int64   `json:"card_id"`
	SiteID        int64   `json:"site_id"`
	Value         float64 `json:"value"`
	LocationID    int64   `json:"location_id"`
	Country       string  `json:"country"`
}

// Key is the partition key for the transaction: all events for one user must
// land on the same partition to keep per-user ordering.
func (t Transaction) Key() string {
	return strconv.FormatInt(t.UserID, 10)
}

type FraudType string

const (
	HighFrequency    FraudType = "HighFrequency"
	HighValue        FraudType = "HighValue"
	DifferentCountry FraudType = "DifferentCountry"
)

func (f FraudType) Valid() bool {
	switch f {
	case HighFrequency, HighValue, DifferentCountry:
		return true
	}
	return false
}

type FraudAlert struct {
	Timestamp int64          `json:"timestamp"`
	FraudType FraudType      `json:"fraud_type"`
	UserID    int64          `json:"user_id"`
	CardID    int64          `json:"card_id"`
	Details   map[string]any `json:"details"`
}

func (a FraudAlert) Key() string {
	return strconv.FormatInt(a.UserID, 10)
}

// CountryForUser returns the home country of a user.
func CountryForUser(userID int64) string {
	n := int64(len(Countries))
	return Countries[((userID%n)+n)%n]
}

// NextCountry returns the entry following c in Countries, wrapping around.
// Unknown countries map to the first entry.
func NextCountry(c string) string {
	for i, name := range Countries {
		if name == c {
			return Countries[(i+1)%len(Countries)]
		}
	}
	return Countries[0]
}
