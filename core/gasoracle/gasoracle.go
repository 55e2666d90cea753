// Package gasoracle provides L1 gas and L1 data-gas prices per fee token
//. A GasOracle is either Fixed (development: prices never
// change) or Sampled (polls an external HTTP endpoint on a cadence and
// serves the last-good value between samples; a sample carrying a zero
// price is rejected like a failed fetch, so a zero is never adopted).
package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"katana-node/core/felt"
)

// Prices is one observation: L1 gas price and L1 data-gas price, per fee
// token (ETH and STRK use independent units).
type Prices struct {
	L1GasPriceETH     felt.Felt
	L1GasPriceSTRK    felt.Felt
	L1DataGasPriceETH felt.Felt
	L1DataGasPriceSTRK felt.Felt
}

// GasOracle is read by the executor to price L1 gas/data-gas into fees.
type GasOracle interface {
	Prices() Prices
}

// Fixed always serves the same prices; used in development and tests.
type Fixed struct {
	prices Prices
}

// NewFixed builds a GasOracle that never changes.
func NewFixed(prices Prices) *Fixed { return &Fixed{prices: prices} }

// Prices implements GasOracle.
func (f *Fixed) Prices() Prices { return f.prices }

// feedResponse is the expected JSON body of the external price endpoint.
type feedResponse struct {
	L1GasPriceETH      string `json:"l1_gas_price_eth"`
	L1GasPriceSTRK     string `json:"l1_gas_price_strk"`
	L1DataGasPriceETH  string `json:"l1_data_gas_price_eth"`
	L1DataGasPriceSTRK string `json:"l1_data_gas_price_strk"`
}

// Sampled polls an HTTP endpoint for prices on a fixed cadence, grounded on
// the PollSensor HTTP-GET-then-store shape in core/external_sensor.go,
// generalized from a one-shot store write to a background ticker loop with
// an atomically-swapped last-good value.
type Sampled struct {
	endpoint string
	client   *http.Client
	log      *logrus.Logger

	current atomic.Pointer[Prices]
}

// NewSampled constructs a Sampled oracle seeded with an initial value
// (served until the first successful poll) and begins polling endpoint
// every period until ctx is cancelled.
func NewSampled(ctx context.Context, endpoint string, period time.Duration, seed Prices, log *logrus.Logger) *Sampled {
	s := &Sampled{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
	s.current.Store(&seed)
	go s.run(ctx, period)
	return s
}

// Prices implements GasOracle, serving the last successfully observed
// sample.
func (s *Sampled) Prices() Prices {
	return *s.current.Load()
}

func (s *Sampled) run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.log.WithFields(logrus.Fields{"err": err, "endpoint": s.endpoint}).Warn("gasoracle: sample failed, serving last-good value")
			}
		}
	}
}

func (s *Sampled) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("gasoracle: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gasoracle: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gasoracle: http %d: %s", resp.StatusCode, string(body))
	}
	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return fmt.Errorf("gasoracle: decode response: %w", err)
	}
	prices, err := fr.toPrices()
	if err != nil {
		return fmt.Errorf("gasoracle: parse prices: %w", err)
	}
	if prices.L1GasPriceETH.IsZero() || prices.L1GasPriceSTRK.IsZero() ||
		prices.L1DataGasPriceETH.IsZero() || prices.L1DataGasPriceSTRK.IsZero() {
		return fmt.Errorf("gasoracle: sample carries a zero price")
	}
	s.current.Store(&prices)
	return nil
}

func (fr feedResponse) toPrices() (Prices, error) {
	ethGas, err := felt.FromHex(fr.L1GasPriceETH)
	if err != nil {
		return Prices{}, fmt.Errorf("l1_gas_price_eth: %w", err)
	}
	strkGas, err := felt.FromHex(fr.L1GasPriceSTRK)
	if err != nil {
		return Prices{}, fmt.Errorf("l1_gas_price_strk: %w", err)
	}
	ethDataGas, err := felt.FromHex(fr.L1DataGasPriceETH)
	if err != nil {
		return Prices{}, fmt.Errorf("l1_data_gas_price_eth: %w", err)
	}
	strkDataGas, err := felt.FromHex(fr.L1DataGasPriceSTRK)
	if err != nil {
		return Prices{}, fmt.Errorf("l1_data_gas_price_strk: %w", err)
	}
	return Prices{
		L1GasPriceETH:      ethGas,
		L1GasPriceSTRK:     strkGas,
		L1DataGasPriceETH:  ethDataGas,
		L1DataGasPriceSTRK: strkDataGas,
	}, nil
}
