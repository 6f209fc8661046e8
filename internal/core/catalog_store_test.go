package core_test

import (
	"errors"
	"testing"

	"budget-engine/internal/core"

	"github.com/shopspring/decimal"
)

func TestPricebookInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      core.PricebookInput
		wantErr bool
	}{
		{"ok", core.PricebookInput{Name: "SINAPI", Type: core.ItemMaterial}, false},
		{"missing name", core.PricebookInput{Type: core.ItemLabor}, true},
		{"bad type", core.PricebookInput{Name: "x", Type: "SERVICE"}, true},
		{"inverted window", core.PricebookInput{Name: "x", Type: core.ItemLabor,
			ValidFrom: ptr(day("2024-06-01")), ValidTo: ptr(day("2024-05-01"))}, true},
		{"single-day window", core.PricebookInput{Name: "x", Type: core.ItemLabor,
			ValidFrom: ptr(day("2024-06-01")), ValidTo: ptr(day("2024-06-01"))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				var verr *core.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPriceEntryInput_ValidateAgainst(t *testing.T) {
	pb := core.Pricebook{ID: 1, Type: core.ItemLabor, ValidFrom: ptr(day("2024-01-01")), ValidTo: ptr(day("2024-12-31"))}
	base := core.PriceEntryInput{PricebookID: 1, ItemID: 3, Price: decimal.NewFromInt(50), Currency: "BRL"}

	tests := []struct {
		name    string
		mutate  func(*core.PriceEntryInput)
		wantErr bool
	}{
		{"ok", func(*core.PriceEntryInput) {}, false},
		{"narrower window", func(in *core.PriceEntryInput) {
			in.ValidFrom, in.ValidTo = ptr(day("2024-03-01")), ptr(day("2024-04-01"))
		}, false},
		{"starts before pricebook", func(in *core.PriceEntryInput) { in.ValidFrom = ptr(day("2023-12-01")) }, true},
		{"ends after pricebook", func(in *core.PriceEntryInput) { in.ValidTo = ptr(day("2025-01-01")) }, true},
		{"negative price", func(in *core.PriceEntryInput) { in.Price = decimal.NewFromInt(-1) }, true},
		{"no currency", func(in *core.PriceEntryInput) { in.Currency = " " }, true},
		{"manufacturer on labor", func(in *core.PriceEntryInput) { in.ManufacturerID = ptr(2) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			err := in.ValidateAgainst(pb)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
