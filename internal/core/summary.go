package core

import (
	"github.com/shopspring/decimal"
)

// BudgetSummary is the aggregate of a revision's priced lines.
// Lines without a resolved price are excluded from the totals and listed in MissingPrices.
// The first priced line fixes Currency; lines priced in any other currency are excluded
// from the totals and listed in CurrencyMismatches.
type BudgetSummary struct {
	Cost               decimal.Decimal `json:"cost"`
	MarkupAmount       decimal.Decimal `json:"markup_amount"`
	SellPrice          decimal.Decimal `json:"sell_price"`
	Currency           string          `json:"currency,omitempty"`
	PricedLines        int             `json:"priced_lines"`
	MissingPrices      []ItemRef       `json:"missing_prices,omitempty"`
	CurrencyMismatches []ItemRef       `json:"currency_mismatches,omitempty"`
}

// Complete reports whether every line was priced in the summary currency.
func (s BudgetSummary) Complete() bool {
	return len(s.MissingPrices) == 0 && len(s.CurrencyMismatches) == 0
}

// ComputeSummary totals lines and applies the markup rule. A nil rule means no markup.
// Per-line overrides are honoured only when the rule allows per-WBS markup.
func ComputeSummary(lines []BudgetLine, rule *MarkupRule) BudgetSummary {
	sum := BudgetSummary{Cost: decimal.Zero, MarkupAmount: decimal.Zero, SellPrice: decimal.Zero}
	for _, line := range lines {
		if line.UnitPrice == nil {
			sum.MissingPrices = append(sum.MissingPrices, line.Item)
			continue
		}
		if sum.Currency == "" {
			sum.Currency = line.UnitPrice.Currency
		} else if line.UnitPrice.Currency != sum.Currency {
			sum.CurrencyMismatches = append(sum.CurrencyMismatches, line.Item)
			continue
		}
		cost := line.Quantity.Mul(line.UnitPrice.Price)
		pct := lineMarkup(line, rule)
		markup := cost.Mul(pct)

		sum.Cost = sum.Cost.Add(cost)
		sum.MarkupAmount = sum.MarkupAmount.Add(markup)
		sum.PricedLines++
	}
	sum.Cost = sum.Cost.Round(2)
	sum.MarkupAmount = sum.MarkupAmount.Round(2)
	sum.SellPrice = sum.Cost.Add(sum.MarkupAmount)
	return sum
}

func lineMarkup(line BudgetLine, rule *MarkupRule) decimal.Decimal {
	if rule == nil {
		return decimal.Zero
	}
	if rule.AllowPerWBS && line.MarkupOverride != nil && !line.MarkupOverride.IsNegative() {
		return *line.MarkupOverride
	}
	return rule.MarkupPct
}
