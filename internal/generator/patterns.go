package generator

import (
	"math"
	"math/rand"
	"time"

	"fraudstream/internal/domain"
)

// User id ranges. Valid traffic never shares a range with a fraud pattern so a
// pattern's alerts cannot be muddied by unrelated history.
const (
	validUserMin, validUserMax             = 11000, 19999
	highFreqUserMin, highFreqUserMax       = 21000, 29999
	highValueUserMin, highValueUserMax     = 31000, 39999
	diffCountryUserMin, diffCountryUserMax = 41000, 49999
)

// Pattern timing, in seconds.
const (
	validBackdate     = 600
	highValueBackdate = 3600

	highFreqGapMin, highFreqGapMax = 30, 100
	rampGapMin, rampGapMax         = 360, 600
	highValueFinalOffset           = 3600
	countryGapMin, countryGapMax   = 360, 600
)

// factory builds synthetic transactions. It is not safe for concurrent use;
// every emitter owns one.
type factory struct {
	rng *rand.Rand
	now func() time.Time
}

func newFactory(seed int64, now func() time.Time) *factory {
	return &factory{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (f *factory) between(lo, hi int64) int64 {
	return lo + f.rng.Int63n(hi-lo+1)
}

func (f *factory) uniform(lo, hi float64) float64 {
	return lo + f.rng.Float64()*(hi-lo)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// transaction returns a fully randomized transaction for userID at ts. The
// country is the user's home country.
func (f *factory) transaction(ts, userID int64) domain.Transaction {
	return domain.Transaction{
		Timestamp:     ts,
		TransactionID: f.between(100000, 999999),
		UserID:        userID,
		CardID:        f.between(100000, 999999),
		SiteID:        f.between(1000, 9999),
		Value:         roundCents(f.uniform(1.0, 1000.0)),
		LocationID:    f.between(1, 100),
		Country:       domain.CountryForUser(userID),
	}
}

func (f *factory) Valid() domain.Transaction {
	ts := f.now().Unix() - validBackdate
	return f.transaction(ts, f.between(validUserMin, validUserMax))
}

// HighFrequencyBurst returns 2-4 transactions for one user and card, each
// 30-100s after the previous one and each with a value different from its
// predecessor.
func (f *factory) HighFrequencyBurst() []domain.Transaction {
	userID := f.between(highFreqUserMin, highFreqUserMax)
	first := f.transaction(f.now().Unix()-validBackdate, userID)

	n := int(f.between(2, 4))
	out := make([]domain.Transaction, 0, n)
	out = append(out, first)
	for len(out) < n {
		prev := out[len(out)-1]
		tx := f.transaction(prev.Timestamp+f.between(highFreqGapMin, highFreqGapMax), userID)
		tx.CardID = first.CardID
		for tx.Value == prev.Value {
			tx.Value = roundCents(f.uniform(1.0, 1000.0))
		}
		out = append(out, tx)
	}
	return out
}

// HighValueRamp returns 1-10 ramp transactions spaced 360-600s apart followed
// by one transaction at base+3600s worth 2.1x-5.0x the ramp maximum. Ramp
// entries that would land at or after the final timestamp are dropped.
func (f *factory) HighValueRamp() []domain.Transaction {
	userID := f.between(highValueUserMin, highValueUserMax)
	base := f.now().Unix() - highValueBackdate
	final := base + highValueFinalOffset
	cardID := f.between(100000, 999999)

	n := int(f.between(1, 10))
	out := make([]domain.Transaction, 0, n+1)
	maxValue := 0.0
	ts := base
	for i := 0; i < n && ts < final; i++ {
		tx := f.transaction(ts, userID)
		tx.CardID = cardID
		out = append(out, tx)
		maxValue = math.Max(maxValue, tx.Value)
		ts += f.between(rampGapMin, rampGapMax)
	}

	last := f.transaction(final, userID)
	last.CardID = cardID
	last.Value = roundCents(maxValue * f.uniform(2.1, 5.0))
	if last.Value <= 2*maxValue {
		last.Value = math.Floor(2*maxValue*100+1) / 100
	}
	return append(out, last)
}

// DifferentCountryPair returns two transactions for one user and card,
// 360-600s apart, in different countries. The gap stays outside the
// high-frequency window so only the country rule can fire.
func (f *factory) DifferentCountryPair() []domain.Transaction {
	userID := f.between(diffCountryUserMin, diffCountryUserMax)
	first := f.transaction(f.now().Unix()-validBackdate, userID)

	second := f.transaction(first.Timestamp+f.between(countryGapMin, countryGapMax), userID)
	second.CardID = first.CardID
	second.Country = domain.NextCountry(first.Country)
	return []domain.Transaction{first, second}
}
