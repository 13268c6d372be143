package generator

import (
	"testing"
	"time"

	"fraudstream/internal/domain"
)

var fixedNow = func() time.Time { return time.Unix(1_700_000_000, 0) }

func inRange(v, lo, hi int64) bool { return v >= lo && v <= hi }

func TestValidTransaction(t *testing.T) {
	t.Parallel()
	f := newFactory(1, fixedNow)

	for i := 0; i < 500; i++ {
		tx := f.Valid()
		if !inRange(tx.UserID, validUserMin, validUserMax) {
			t.Fatalf("user %d outside valid range", tx.UserID)
		}
		if tx.Country != domain.CountryForUser(tx.UserID) {
			t.Errorf("Expected country %s for user %d, got %s", domain.CountryForUser(tx.UserID), tx.UserID, tx.Country)
		}
		if tx.Value < 1 || tx.Value > 1000 {
			t.Errorf("value %v outside [1, 1000]", tx.Value)
		}
		if tx.Timestamp != fixedNow().Unix()-validBackdate {
			t.Errorf("Expected timestamp %d, got %d", fixedNow().Unix()-validBackdate, tx.Timestamp)
		}
		if !inRange(tx.SiteID, 1000, 9999) || !inRange(tx.LocationID, 1, 100) ||
			!inRange(tx.TransactionID, 100000, 999999) || !inRange(tx.CardID, 100000, 999999) {
			t.Errorf("identifier out of range: %+v", tx)
		}
	}
}

func TestHighFrequencyBurst(t *testing.T) {
	t.Parallel()
	f := newFactory(2, fixedNow)

	for i := 0; i < 500; i++ {
		burst := f.HighFrequencyBurst()
		if len(burst) < 2 || len(burst) > 4 {
			t.Fatalf("Expected 2-4 transactions, got %d", len(burst))
		}
		first := burst[0]
		if !inRange(first.UserID, highFreqUserMin, highFreqUserMax) {
			t.Fatalf("user %d outside high-frequency range", first.UserID)
		}
		for j := 1; j < len(burst); j++ {
			prev, cur := burst[j-1], burst[j]
			if cur.UserID != first.UserID || cur.CardID != first.CardID {
				t.Errorf("burst changed user/card: %+v vs %+v", first, cur)
			}
			gap := cur.Timestamp - prev.Timestamp
			if gap < highFreqGapMin || gap > highFreqGapMax {
				t.Errorf("gap %d outside [30, 100]", gap)
			}
			if cur.Value == prev.Value {
				t.Errorf("consecutive values must differ, both %v", cur.Value)
			}
		}
		if span := burst[len(burst)-1].Timestamp - first.Timestamp; span > 300 {
			t.Errorf("burst spans %ds, beyond the frequency window", span)
		}
	}
}

func TestHighValueRamp(t *testing.T) {
	t.Parallel()
	f := newFactory(3, fixedNow)
	base := fixedNow().Unix() - highValueBackdate

	for i := 0; i < 500; i++ {
		txs := f.HighValueRamp()
		if len(txs) < 2 || len(txs) > 11 {
			t.Fatalf("Expected 2-11 transactions, got %d", len(txs))
		}
		ramp, last := txs[:len(txs)-1], txs[len(txs)-1]

		maxValue := 0.0
		for j, tx := range ramp {
			if tx.UserID != last.UserID || tx.CardID != last.CardID {
				t.Errorf("ramp changed user/card")
			}
			if tx.Timestamp >= last.Timestamp {
				t.Errorf("ramp timestamp %d not before final %d", tx.Timestamp, last.Timestamp)
			}
			if j > 0 {
				gap := tx.Timestamp - ramp[j-1].Timestamp
				if gap < rampGapMin || gap > rampGapMax {
					t.Errorf("ramp gap %d outside [360, 600]", gap)
				}
			}
			if tx.Value > maxValue {
				maxValue = tx.Value
			}
		}
		if last.Timestamp != base+highValueFinalOffset {
			t.Errorf("Expected final at %d, got %d", base+highValueFinalOffset, last.Timestamp)
		}
		if last.Value <= 2*maxValue {
			t.Errorf("final value %v not above twice the ramp max %v", last.Value, maxValue)
		}
		if last.Value > 5*maxValue+0.01 {
			t.Errorf("final value %v above 5x ramp max %v", last.Value, maxValue)
		}
	}
}

func TestDifferentCountryPair(t *testing.T) {
	t.Parallel()
	f := newFactory(4, fixedNow)

	for i := 0; i < 500; i++ {
		pair := f.DifferentCountryPair()
		if len(pair) != 2 {
			t.Fatalf("Expected 2 transactions, got %d", len(pair))
		}
		a, b := pair[0], pair[1]
		if !inRange(a.UserID, diffCountryUserMin, diffCountryUserMax) {
			t.Errorf("user %d outside different-country range", a.UserID)
		}
		if a.UserID != b.UserID || a.CardID != b.CardID {
			t.Errorf("pair changed user/card")
		}
		if a.Country == b.Country {
			t.Errorf("countries must differ, both %s", a.Country)
		}
		if b.Country != domain.NextCountry(a.Country) {
			t.Errorf("Expected %s after %s, got %s", domain.NextCountry(a.Country), a.Country, b.Country)
		}
		gap := b.Timestamp - a.Timestamp
		if gap < 360 || gap > 600 {
			t.Errorf("gap %d outside [360, 600]", gap)
		}
	}
}

func TestFactoryIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	a := newFactory(42, fixedNow).HighValueRamp()
	b := newFactory(42, fixedNow).HighValueRamp()
	if len(a) != len(b) {
		t.Fatalf("Expected equal lengths, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("transaction %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
