package models_test

import (
	"errors"
	"testing"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

func TestDefaultStocks(t *testing.T) {
	stocks := models.DefaultStocks()
	if len(stocks) != 7 {
		t.Fatalf("Expected 7 demo stocks, got %d", len(stocks))
	}
	if err := models.ValidateStocks(stocks); err != nil {
		t.Fatalf("Demo dataset should be valid: %v", err)
	}
	if stocks[3].Symbol != "AAPL" || stocks[3].CurrentPrice != 150.0 {
		t.Errorf("Expected AAPL at 150.0, got %s at %f", stocks[3].Symbol, stocks[3].CurrentPrice)
	}
	for _, s := range stocks {
		if s.PriceChange != 0 {
			t.Errorf("Expected zero initial change for %s", s.Symbol)
		}
	}
}

func TestValidateStocks(t *testing.T) {
	dup := []models.Stock{{Symbol: "AAPL"}, {Symbol: "AAPL"}}
	if err := models.ValidateStocks(dup); !errors.Is(err, models.ErrDuplicateSymbol) {
		t.Errorf("Expected ErrDuplicateSymbol, got %v", err)
	}

	empty := []models.Stock{{Symbol: "AAPL"}, {Symbol: ""}}
	if err := models.ValidateStocks(empty); !errors.Is(err, models.ErrEmptySymbol) {
		t.Errorf("Expected ErrEmptySymbol, got %v", err)
	}

	if err := models.ValidateStocks(nil); err != nil {
		t.Errorf("Empty list should be valid, got %v", err)
	}
}

func TestSnapshot_Updates(t *testing.T) {
	snap := models.Snapshot{
		SeqID:     4,
		Timestamp: 1000,
		Stocks: []models.Stock{
			{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: 157.5, PriceChange: 7.5},
			{Symbol: "NKE", CompanyName: "NIKE, Inc.", CurrentPrice: 95.0},
		},
	}

	updates := snap.Updates()
	if len(updates) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(updates))
	}
	if updates[0].Symbol != "AAPL" || updates[0].Price != 157.5 || updates[0].Change != 7.5 {
		t.Errorf("Unexpected AAPL update: %+v", updates[0])
	}
	if updates[1].SeqID != 4 || updates[1].Timestamp != 1000 {
		t.Errorf("Updates should carry snapshot seq and timestamp: %+v", updates[1])
	}
}
