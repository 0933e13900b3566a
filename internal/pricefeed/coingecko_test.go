package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestGetPriceUnsupportedSymbol(t *testing.T) {
	feed := NewCoinGecko(CoinGeckoOptions{}, noopLogger())
	if _, err := feed.GetPrice(context.Background(), "DOGE/USDT"); !errors.Is(err, ErrUnsupportedSymbol) {
		t.Fatalf("expected ErrUnsupportedSymbol, got %v", err)
	}
}

func TestSymbolsSortedFromTokenTable(t *testing.T) {
	feed := NewCoinGecko(CoinGeckoOptions{TokenIDs: map[string]string{
		"TON/USDT": "the-open-network",
		"BTC/USDT": "bitcoin",
	}}, noopLogger())

	symbols := feed.Symbols()
	if len(symbols) != 2 || symbols[0] != "BTC/USDT" || symbols[1] != "TON/USDT" {
		t.Fatalf("Symbols() = %v, want sorted tracked pairs", symbols)
	}
}

func TestGetPriceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "the-open-network" {
			t.Fatalf("unexpected ids query: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"the-open-network":{"usd":5.42}}`))
	}))
	defer srv.Close()

	feed := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	price, err := feed.GetPrice(context.Background(), "ton/usdt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("5.42")) {
		t.Fatalf("expected 5.42, got %s", price)
	}
}

func TestGetPriceRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	feed := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := feed.GetPrice(context.Background(), "SOL/USDT")
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if !domain.IsRateLimited(err) {
		t.Fatalf("429 must classify as rate limited: %v", err)
	}
}

func TestGetPriceMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	feed := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := feed.GetPrice(context.Background(), "SOL/USDT"); err == nil {
		t.Fatal("expected error when price is missing from response")
	}
}
