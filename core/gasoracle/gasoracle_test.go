package gasoracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"katana-node/core/felt"
)

func TestFixedAlwaysServesSamePrices(t *testing.T) {
	want := Prices{L1GasPriceETH: felt.FromUint64(100), L1GasPriceSTRK: felt.FromUint64(200)}
	oracle := NewFixed(want)
	if got := oracle.Prices(); !got.L1GasPriceETH.Equal(want.L1GasPriceETH) || !got.L1GasPriceSTRK.Equal(want.L1GasPriceSTRK) {
		t.Fatalf("expected fixed prices unchanged, got %+v", got)
	}
}

func TestSampledServesSeedUntilFirstPoll(t *testing.T) {
	seed := Prices{L1GasPriceETH: felt.FromUint64(1)}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A period longer than the test's lifetime: no poll should fire before
	// we assert, so the oracle must still be serving the seed value.
	oracle := NewSampled(ctx, "http://127.0.0.1:0/unreachable", time.Hour, seed, log)
	if got := oracle.Prices(); !got.L1GasPriceETH.Equal(seed.L1GasPriceETH) {
		t.Fatalf("expected seed value before first poll, got %+v", got)
	}
}

func TestSampledAdoptsFetchedValueAndSurvivesFailures(t *testing.T) {
	fr := feedResponse{
		L1GasPriceETH:      "0x64",
		L1GasPriceSTRK:     "0xc8",
		L1DataGasPriceETH:  "0x1",
		L1DataGasPriceSTRK: "0x2",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fr)
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := NewSampled(ctx, srv.URL, 10*time.Millisecond, Prices{}, log)

	deadline := time.Now().Add(2 * time.Second)
	want, err := fr.toPrices()
	if err != nil {
		t.Fatalf("toPrices: %v", err)
	}
	for time.Now().Before(deadline) {
		if got := oracle.Prices(); got.L1GasPriceETH.Equal(want.L1GasPriceETH) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected sampled oracle to adopt fetched prices within deadline, last seen %+v", oracle.Prices())
}

func TestSampledKeepsLastGoodValueOnFetchFailure(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := Prices{L1GasPriceETH: felt.FromUint64(77)}
	oracle := NewSampled(ctx, "http://127.0.0.1:1/definitely-closed", 10*time.Millisecond, seed, log)

	time.Sleep(60 * time.Millisecond)
	if got := oracle.Prices(); !got.L1GasPriceETH.Equal(seed.L1GasPriceETH) {
		t.Fatalf("expected last-good (seed) value preserved across fetch failures, got %+v", got)
	}
}
