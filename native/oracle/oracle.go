package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PriceQuote captures an exchange rate for an asset pair along with the
// timestamp reported by the upstream source and the source identifier.
type PriceQuote struct {
	Rate      *big.Rat
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q PriceQuote) Clone() PriceQuote {
	clone := PriceQuote{Timestamp: q.Timestamp, Source: q.Source}
	if q.Rate != nil {
		clone.Rate = new(big.Rat).Set(q.Rate)
	}
	return clone
}

// PriceSource resolves an exchange rate for the provided base/quote asset pair.
type PriceSource interface {
	GetRate(base, quote common.Address) (PriceQuote, error)
}

// ErrNoFreshQuote indicates that no source produced a quote within the
// configured freshness window.
var ErrNoFreshQuote = errors.New("oracle: no fresh quote available")

func pairKey(base, quote common.Address) string {
	return strings.ToLower(base.Hex()) + ":" + strings.ToLower(quote.Hex())
}

// Aggregator consults a list of registered sources in priority order until a
// fresh quote is obtained.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	sources  map[string]PriceSource
	maxAge   time.Duration
}

// NewAggregator constructs an aggregator with the provided priority and
// freshness window. A zero maxAge accepts quotes of any age.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	return &Aggregator{
		priority: append([]string{}, priority...),
		sources:  make(map[string]PriceSource),
		maxAge:   maxAge,
	}
}

// SetMaxAge updates the freshness window used when filtering quotes.
func (a *Aggregator) SetMaxAge(maxAge time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.maxAge = maxAge
	a.mu.Unlock()
}

// Register adds or replaces a source under the supplied identifier.
// Identifiers are stored lowercase so lookups are case-insensitive.
func (a *Aggregator) Register(name string, source PriceSource) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources[trimmed] = source
	for _, entry := range a.priority {
		if entry == trimmed {
			return
		}
	}
	a.priority = append(a.priority, trimmed)
}

// GetRate fetches a rate respecting the priority ordering and the freshness
// window. The returned quote is a defensive copy.
func (a *Aggregator) GetRate(base, quote common.Address) (PriceQuote, error) {
	if a == nil {
		return PriceQuote{}, fmt.Errorf("oracle aggregator not configured")
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	a.mu.RUnlock()

	cutoff := time.Time{}
	if maxAge > 0 {
		cutoff = time.Now().Add(-maxAge)
	}

	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		source := a.sources[name]
		a.mu.RUnlock()
		if source == nil {
			continue
		}
		result, err := source.GetRate(base, quote)
		if err != nil {
			lastErr = err
			continue
		}
		if result.Rate == nil || result.Rate.Sign() <= 0 {
			lastErr = fmt.Errorf("oracle %s returned invalid rate", name)
			continue
		}
		if maxAge > 0 && result.Timestamp.Before(cutoff) {
			lastErr = ErrNoFreshQuote
			continue
		}
		clone := result.Clone()
		if strings.TrimSpace(clone.Source) == "" {
			clone.Source = name
		}
		return clone, nil
	}
	if lastErr == nil {
		lastErr = ErrNoFreshQuote
	}
	return PriceQuote{}, lastErr
}

// Manual provides an in-memory source used for tests and for operator
// overrides during incident response.
type Manual struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

// NewManual constructs an empty manual source.
func NewManual() *Manual {
	return &Manual{quotes: make(map[string]PriceQuote)}
}

// Set stores the provided rational rate for the asset pair.
func (m *Manual) Set(base, quote common.Address, rate *big.Rat, ts time.Time) {
	if m == nil || rate == nil {
		return
	}
	m.mu.Lock()
	m.quotes[pairKey(base, quote)] = PriceQuote{
		Rate:      new(big.Rat).Set(rate),
		Timestamp: ts,
		Source:    "manual",
	}
	m.mu.Unlock()
}

// SetDecimal records the supplied decimal rate for the asset pair.
func (m *Manual) SetDecimal(base, quote common.Address, rate string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("manual oracle not configured")
	}
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return fmt.Errorf("manual oracle: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("manual oracle: invalid rate %q", rate)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("manual oracle: rate must be positive")
	}
	m.Set(base, quote, rat, ts)
	return nil
}

// GetRate retrieves the stored rate for the asset pair.
func (m *Manual) GetRate(base, quote common.Address) (PriceQuote, error) {
	if m == nil {
		return PriceQuote{}, fmt.Errorf("manual oracle not configured")
	}
	m.mu.RLock()
	stored, ok := m.quotes[pairKey(base, quote)]
	m.mu.RUnlock()
	if !ok {
		return PriceQuote{}, fmt.Errorf("manual oracle: quote for %s/%s not found", base.Hex(), quote.Hex())
	}
	return stored.Clone(), nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches quotes from an endpoint that answers GET requests with
// a JSON body of the form {"rate": "1.25", "timestamp": 1700000000}.
type HTTPSource struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTPSource constructs an HTTP quote source. When the client is nil
// http.DefaultClient is used; the API key header is only set when supplied.
func NewHTTPSource(client HTTPDoer, endpoint, apiKey string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, endpoint: strings.TrimSpace(endpoint), apiKey: strings.TrimSpace(apiKey)}
}

func (s *HTTPSource) GetRate(base, quote common.Address) (PriceQuote, error) {
	if s == nil || s.endpoint == "" {
		return PriceQuote{}, fmt.Errorf("http oracle not configured")
	}
	req, err := http.NewRequest(http.MethodGet, s.endpoint, nil)
	if err != nil {
		return PriceQuote{}, err
	}
	values := url.Values{}
	values.Set("base", strings.ToLower(base.Hex()))
	values.Set("quote", strings.ToLower(quote.Hex()))
	req.URL.RawQuery = values.Encode()
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return PriceQuote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PriceQuote{}, fmt.Errorf("http oracle: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Rate      string `json:"rate"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PriceQuote{}, fmt.Errorf("http oracle: decode: %w", err)
	}
	rate := strings.TrimSpace(payload.Rate)
	rat, ok := new(big.Rat).SetString(rate)
	if !ok || rat.Sign() <= 0 {
		return PriceQuote{}, fmt.Errorf("http oracle: invalid rate %q", payload.Rate)
	}
	return PriceQuote{Rate: rat, Timestamp: time.Unix(payload.Timestamp, 0), Source: "http"}, nil
}

// Converter turns a price source into an amount converter: an amount in the
// base asset becomes the equivalent amount in the quote asset, truncated
// toward zero.
type Converter struct {
	source PriceSource
}

// NewConverter wraps the given price source.
func NewConverter(source PriceSource) *Converter {
	return &Converter{source: source}
}

// Convert prices amount units of base in quote units using the source rate.
func (c *Converter) Convert(base, quote common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if c == nil || c.source == nil {
		return nil, fmt.Errorf("oracle converter not configured")
	}
	if amount == nil || amount.IsZero() {
		return uint256.NewInt(0), nil
	}
	if base == quote {
		return amount.Clone(), nil
	}
	priced, err := c.source.GetRate(base, quote)
	if err != nil {
		return nil, err
	}
	if priced.Rate == nil || priced.Rate.Sign() <= 0 {
		return nil, fmt.Errorf("oracle converter: invalid rate for %s/%s", base.Hex(), quote.Hex())
	}
	value := new(big.Rat).Mul(priced.Rate, new(big.Rat).SetInt(amount.ToBig()))
	floored := new(big.Int).Quo(value.Num(), value.Denom())
	result, overflow := uint256.FromBig(floored)
	if overflow {
		return nil, fmt.Errorf("oracle converter: converted amount overflows 256 bits")
	}
	return result, nil
}
