package models

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySymbol     = errors.New("stock symbol cannot be empty")
	ErrDuplicateSymbol = errors.New("duplicate stock symbol")
)

// Stock is one row of the watch list.
type Stock struct {
	Symbol       string  `json:"symbol"`
	CompanyName  string  `json:"company_name"`
	CurrentPrice float64 `json:"current_price"`
	PriceChange  float64 `json:"price_change"` // delta applied on the most recent tick
}

// Snapshot is the full stock list at one instant.
type Snapshot struct {
	SeqID     int64   `json:"seq_id"`    // monotonic, 0 for the seed list
	Timestamp int64   `json:"timestamp"` // unix micro
	Stocks    []Stock `json:"stocks"`
}

// StockUpdate represents a single market tick for a stock symbol
type StockUpdate struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"company_name"`
	Price       float64 `json:"price"`
	Change      float64 `json:"change"`
	Timestamp   int64   `json:"timestamp"` // unix micro
	SeqID       int64   `json:"seq_id"`    // snapshot sequence the tick belongs to
}

// Updates flattens a snapshot into one StockUpdate per stock, in list order.
func (s Snapshot) Updates() []StockUpdate {
	updates := make([]StockUpdate, len(s.Stocks))
	for i, st := range s.Stocks {
		updates[i] = StockUpdate{
			Symbol:      st.Symbol,
			CompanyName: st.CompanyName,
			Price:       st.CurrentPrice,
			Change:      st.PriceChange,
			Timestamp:   s.Timestamp,
			SeqID:       s.SeqID,
		}
	}
	return updates
}

// DefaultStocks returns the demonstration dataset the simulator is seeded with.
func DefaultStocks() []Stock {
	return []Stock{
		{Symbol: "VNM", CompanyName: "VanEck Vectors Vietnam ETF", CurrentPrice: 13.0},
		{Symbol: "Dow Jones", CompanyName: "Dow Jones Industrial Average", CurrentPrice: 60.0},
		{Symbol: "NKE", CompanyName: "NIKE, Inc.", CurrentPrice: 95.0},
		{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: 150.0},
		{Symbol: "SBUX", CompanyName: "Starbucks Corporation", CurrentPrice: 110.0},
		{Symbol: "BHP", CompanyName: "BHP Billiton Limited", CurrentPrice: 55.0},
		{Symbol: "THC", CompanyName: "Tenet Healthcare Corporation", CurrentPrice: 60.0},
	}
}

// ValidateStocks checks that every symbol is set and unique within the list.
func ValidateStocks(stocks []Stock) error {
	seen := make(map[string]bool, len(stocks))
	for i, s := range stocks {
		if s.Symbol == "" {
			return fmt.Errorf("stock at index %d: %w", i, ErrEmptySymbol)
		}
		if seen[s.Symbol] {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, s.Symbol)
		}
		seen[s.Symbol] = true
	}
	return nil
}
