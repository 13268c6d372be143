package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrMalformed marks a record that is missing required fields or carries a
// field of the wrong shape. Callers drop such records and keep going.
var ErrMalformed = errors.New("malformed record")

var transactionFields = []string{
	"timestamp", "transaction_id", "user_id", "card_id",
	"site_id", "value", "location_id", "country",
}

// Fields returns the flat mapping used on the wire.
func (t Transaction) Fields() map[string]any {
	return map[string]any{
		"timestamp":      t.Timestamp,
		"transaction_id": t.TransactionID,
		"user_id":        t.UserID,
		"card_id":        t.CardID,
		"site_id":        t.SiteID,
		"value":          t.Value,
		"location_id":    t.LocationID,
		"country":        t.Country,
	}
}

// TransactionFromFields builds a Transaction from a decoded flat mapping.
// Numbers may arrive as any Go numeric type; JSON and structpb both hand
// them over as float64.
func TransactionFromFields(m map[string]any) (Transaction, error) {
	if missing := missingFields(m, transactionFields); len(missing) > 0 {
		return Transaction{}, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}

	var t Transaction
	r := fieldReader{m: m}
	t.Timestamp = r.readInt("timestamp")
	t.TransactionID = r.readInt("transaction_id")
	t.UserID = r.readInt("user_id")
	t.CardID = r.readInt("card_id")
	t.SiteID = r.readInt("site_id")
	t.Value = r.readFloat("value")
	t.LocationID = r.readInt("location_id")
	t.Country = r.readString("country")
	if err := r.err(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (a FraudAlert) Fields() map[string]any {
	details := make(map[string]any, len(a.Details))
	for k, v := range a.Details {
		details[k] = v
	}
	return map[string]any{
		"timestamp":  a.Timestamp,
		"fraud_type": string(a.FraudType),
		"user_id":    a.UserID,
		"card_id":    a.CardID,
		"details":    details,
	}
}

var alertFields = []string{"timestamp", "fraud_type", "user_id", "card_id", "details"}

func FraudAlertFromFields(m map[string]any) (FraudAlert, error) {
	if missing := missingFields(m, alertFields); len(missing) > 0 {
		return FraudAlert{}, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}

	var a FraudAlert
	r := fieldReader{m: m}
	a.Timestamp = r.readInt("timestamp")
	a.FraudType = FraudType(r.readString("fraud_type"))
	a.UserID = r.readInt("user_id")
	a.CardID = r.readInt("card_id")
	if err := r.err(); err != nil {
		return FraudAlert{}, err
	}
	if !a.FraudType.Valid() {
		return FraudAlert{}, fmt.Errorf("%w: unknown fraud_type %q", ErrMalformed, a.FraudType)
	}
	details, ok := m["details"].(map[string]any)
	if !ok {
		return FraudAlert{}, fmt.Errorf("%w: details is %T, want mapping", ErrMalformed, m["details"])
	}
	a.Details = details
	return a, nil
}

func missingFields(m map[string]any, required []string) []string {
	var missing []string
	for _, f := range required {
		if v, ok := m[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return missing
}

// fieldReader collects the first conversion failure so callers can read all
// fields and check once.
type fieldReader struct {
	m     map[string]any
	first error
}

func (r *fieldReader) fail(field string, v any, want string) {
	if r.first == nil {
		r.first = fmt.Errorf("%w: %s is %T, want %s", ErrMalformed, field, v, want)
	}
}

func (r *fieldReader) readInt(field string) int64 {
	switch v := r.m[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			r.fail(field, v, "integer")
			return 0
		}
		return int64(v)
	default:
		r.fail(field, v, "integer")
		return 0
	}
}

func (r *fieldReader) readFloat(field string) float64 {
	switch v := r.m[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		r.fail(field, v, "number")
		return 0
	}
}

func (r *fieldReader) readString(field string) string {
	v, ok := r.m[field].(string)
	if !ok {
		r.fail(field, r.m[field], "string")
	}
	return v
}

func (r *fieldReader) err() error {
	return r.first
}
