// Package prices supplies BTC prices in the base asset: historic daily closes
// over HTTP and a live ticker over a websocket feed.
package prices

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/satsledger/satsledger"
)

// Historic fetches daily prices from a JSON HTTP endpoint.
type Historic struct {
	// Endpoint is a URL template with one %s verb receiving the ISO day.
	Endpoint string
	// Path is the jsonpath of the price value inside the response.
	Path   string
	Client *http.Client
}

// NewHistoric returns a Historic using the daily disk cache, so each
// (endpoint, day) pair is requested at most once per calendar day.
func NewHistoric(endpoint, path string, log *zap.Logger) *Historic {
	return &Historic{Endpoint: endpoint, Path: path, Client: Daily(log)}
}

// Price returns the price for the given day.
func (h *Historic) Price(day satsledger.Date) (decimal.Decimal, error) {
	addr := fmt.Sprintf(h.Endpoint, day)

	resp, err := h.Client.Get(addr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not fetch price for %s: %w", day, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("could not fetch price for %s: %s", day, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return decimal.Zero, err
	}

	var jobj any
	if err := json.Unmarshal(buf.Bytes(), &jobj); err != nil {
		return decimal.Zero, fmt.Errorf("malformed price response for %s: %w", day, err)
	}
	jval, err := jsonpath.Get(h.Path, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price not found at %q for %s: %w", h.Path, day, err)
	}
	// jsonpath sometimes wraps a single answer in a list; unwrap it.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		price, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad price value %q for %s: %w", v, day, err)
		}
		return price, nil
	default:
		return decimal.Zero, fmt.Errorf("price at %q for %s is neither number nor string: %v", h.Path, day, jval)
	}
}
