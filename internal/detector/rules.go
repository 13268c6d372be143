package detector

import (
	"fmt"
	"time"

	"fraudstream/internal/domain"
)

// Rule checks one transaction against the user's state as it was before the
// transaction arrived. It returns the alert details when it matches.
type Rule struct {
	Type  domain.FraudType
	Check func(tx domain.Transaction, st *UserState) (map[string]any, bool)
}

type Thresholds struct {
	FrequencyWindow time.Duration
	CountryWindow   time.Duration
	ValueMultiplier float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FrequencyWindow: 300 * time.Second,
		CountryWindow:   2 * time.Hour,
		ValueMultiplier: 2,
	}
}

// DefaultRules returns the three rules in evaluation order.
func DefaultRules(th Thresholds) []Rule {
	return []Rule{
		HighFrequencyRule(th.FrequencyWindow),
		HighValueRule(th.ValueMultiplier),
		DifferentCountryRule(th.CountryWindow),
	}
}

// HighFrequencyRule matches a second transaction with a different amount
// less than window after the previous one.
func HighFrequencyRule(window time.Duration) Rule {
	limit := int64(window / time.Second)
	return Rule{
		Type: domain.HighFrequency,
		Check: func(tx domain.Transaction, st *UserState) (map[string]any, bool) {
			last, ok := st.Last()
			if !ok || tx.Timestamp-last.Timestamp >= limit || tx.Value == last.Value {
				return nil, false
			}
			return map[string]any{
				"last_transaction_timestamp":    last.Timestamp,
				"current_transaction_timestamp": tx.Timestamp,
				"value_difference":              tx.Value - last.Value,
			}, true
		},
	}
}

// HighValueRule matches a transaction worth more than multiplier times the
// largest amount in the user's history.
func HighValueRule(multiplier float64) Rule {
	return Rule{
		Type: domain.HighValue,
		Check: func(tx domain.Transaction, st *UserState) (map[string]any, bool) {
			if len(st.History) == 0 {
				return nil, false
			}
			maxValue := st.MaxValue()
			if tx.Value <= multiplier*maxValue {
				return nil, false
			}
			return map[string]any{
				"max_previous_value": maxValue,
				"current_value":      tx.Value,
			}, true
		},
	}
}

// DifferentCountryRule matches a change of country less than window after
// the previous transaction.
func DifferentCountryRule(window time.Duration) Rule {
	limit := int64(window / time.Second)
	return Rule{
		Type: domain.DifferentCountry,
		Check: func(tx domain.Transaction, st *UserState) (map[string]any, bool) {
			last, ok := st.Last()
			if !ok || tx.Country == last.Country {
				return nil, false
			}
			diff := tx.Timestamp - last.Timestamp
			if diff >= limit {
				return nil, false
			}
			return map[string]any{
				"last_country":    last.Country,
				"current_country": tx.Country,
				"time_difference": diff,
			}, true
		},
	}
}

// AlertPolicy decides which of several matching rules produce alerts for a
// single transaction.
type AlertPolicy string

const (
	// LastMatch keeps only the match of the last rule in evaluation order.
	LastMatch AlertPolicy = "last-match"
	// FirstMatch keeps only the match of the first rule in evaluation order.
	FirstMatch AlertPolicy = "first-match"
	// AllMatches emits one alert per matching rule, in evaluation order.
	AllMatches AlertPolicy = "all"
)

func ParsePolicy(s string) (AlertPolicy, error) {
	switch p := AlertPolicy(s); p {
	case LastMatch, FirstMatch, AllMatches:
		return p, nil
	case "":
		return LastMatch, nil
	default:
		return "", fmt.Errorf("unknown alert policy %q (want last-match, first-match or all)", s)
	}
}

func (p AlertPolicy) selectAlerts(matches []domain.FraudAlert) []domain.FraudAlert {
	if len(matches) == 0 {
		return nil
	}
	switch p {
	case FirstMatch:
		return matches[:1]
	case AllMatches:
		return matches
	default:
		return matches[len(matches)-1:]
	}
}
