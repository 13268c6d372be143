// Package detector evaluates the fraud rules against per-user history and
// drives the consume-evaluate-publish loop.
package detector

import (
	"time"

	"fraudstream/internal/domain"
)

type Config struct {
	Thresholds Thresholds
	Policy     AlertPolicy
	// Retention bounds each user's history by event time. Zero keeps all of it.
	Retention time.Duration
}

func DefaultConfig() Config {
	return Config{Thresholds: DefaultThresholds(), Policy: LastMatch}
}

// Detector is the stateful rule engine. It is not safe for concurrent use.
type Detector struct {
	rules  []Rule
	policy AlertPolicy
	store  *StateStore
}

func New(cfg Config) *Detector {
	if cfg.Policy == "" {
		cfg.Policy = LastMatch
	}
	return &Detector{
		rules:  DefaultRules(cfg.Thresholds),
		policy: cfg.Policy,
		store:  NewStateStore(cfg.Retention),
	}
}

// Process evaluates tx against the user's history, records tx, and returns
// the alerts selected by the policy (possibly none).
func (d *Detector) Process(tx domain.Transaction) []domain.FraudAlert {
	st := d.store.GetOrCreate(tx.UserID)

	var matches []domain.FraudAlert
	for _, rule := range d.rules {
		details, ok := rule.Check(tx, st)
		if !ok {
			continue
		}
		matches = append(matches, domain.FraudAlert{
			Timestamp: tx.Timestamp,
			FraudType: rule.Type,
			UserID:    tx.UserID,
			CardID:    tx.CardID,
			Details:   details,
		})
	}

	d.store.Append(tx)
	return d.policy.selectAlerts(matches)
}

// Users is the number of users the detector holds history for.
func (d *Detector) Users() int { return d.store.Users() }
