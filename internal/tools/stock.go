package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const alphaVantageURL = "https://www.alphavantage.co"

// Symbols are short alphanumeric tickers, dots allowed (e.g. BRK.B).
var symbolRe = regexp.MustCompile(`^[A-Za-z0-9.]{1,10}$`)

// Quote is the subset of an AlphaVantage GLOBAL_QUOTE response we care about.
type Quote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	Volume        string `json:"volume"`
	TradingDay    string `json:"latest_trading_day"`
}

// StockClient fetches latest quotes from the AlphaVantage API.
type StockClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewStockClient(apiKey string, timeout time.Duration) *StockClient {
	return &StockClient{
		http:    &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: alphaVantageURL,
	}
}

// Quote fetches the latest quote for symbol. An invalid symbol is a
// *ValidationError; transport and API failures are ordinary errors.
func (c *StockClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	if !symbolRe.MatchString(symbol) {
		return Quote{}, &ValidationError{Msg: "invalid stock symbol"}
	}

	url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, strings.ToUpper(symbol), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("api request failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("read quote response: %w", err)
	}

	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return Quote{}, fmt.Errorf("alphavantage: %s", msg.String())
	}

	g := gjson.GetBytes(body, "Global Quote")
	if !g.Exists() || len(g.Map()) == 0 {
		return Quote{}, fmt.Errorf("alphavantage: empty quote for %s", strings.ToUpper(symbol))
	}
	return Quote{
		Symbol:        g.Get(`01\. symbol`).String(),
		Price:         g.Get(`05\. price`).String(),
		Change:        g.Get(`09\. change`).String(),
		ChangePercent: g.Get(`10\. change percent`).String(),
		Volume:        g.Get(`06\. volume`).String(),
		TradingDay:    g.Get(`07\. latest trading day`).String(),
	}, nil
}
