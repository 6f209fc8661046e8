package cli

import (
	"fmt"
	"io"
	"strings"

	"budget-engine/internal/app"
	"budget-engine/internal/core"
)

func printPrice(w io.Writer, r *app.PriceResult) {
	if !r.Found {
		fmt.Fprintf(w, "No price available for %s.\n", r.Item)
		return
	}
	p := r.Price
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ITEM:       %s\n", r.Item)
	fmt.Fprintf(w, "  PRICE:      %s %s\n", p.Price.StringFixed(2), p.Currency)
	fmt.Fprintf(w, "  ORIGIN:     %s\n", p.Origin)
	fmt.Fprintf(w, "  PRICEBOOK:  #%d %s\n", p.PricebookID, p.PricebookName)
	fmt.Fprintf(w, "  ENTRY:      #%d\n", p.EntryID)
	if p.MatchedManufacturerID != nil {
		fmt.Fprintf(w, "  MFR MATCH:  %d\n", *p.MatchedManufacturerID)
	}
	if p.Source != "" {
		fmt.Fprintf(w, "  SOURCE:     %s\n", p.Source)
	}
}

func printPermissions(w io.Writer, r *app.PermissionsResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  STATUS: %s\n", r.Permissions.Status)
	fmt.Fprintln(w, "  "+strings.Repeat("-", 58))
	for _, a := range core.AllActions {
		if r.Permissions.Allows(a) {
			fmt.Fprintf(w, "  %-20s allowed\n", a)
			continue
		}
		fmt.Fprintf(w, "  %-20s blocked: %s\n", a, r.Blocked[a])
	}
}

func printSummary(w io.Writer, s core.BudgetSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  "+strings.Repeat("=", 40))
	fmt.Fprintf(w, "  %-20s %19s\n", "COST", s.Cost.StringFixed(2))
	fmt.Fprintf(w, "  %-20s %19s\n", "MARKUP", s.MarkupAmount.StringFixed(2))
	fmt.Fprintf(w, "  %-20s %19s\n", "SELL PRICE", s.SellPrice.StringFixed(2))
	fmt.Fprintln(w, "  "+strings.Repeat("=", 40))
	fmt.Fprintf(w, "  %d line(s) priced, currency %s\n", s.PricedLines, s.Currency)
	if len(s.MissingPrices) > 0 {
		fmt.Fprintf(w, "  MISSING PRICES: %s\n", joinRefs(s.MissingPrices))
	}
	if len(s.CurrencyMismatches) > 0 {
		fmt.Fprintf(w, "  NOT IN %s: %s\n", s.Currency, joinRefs(s.CurrencyMismatches))
	}
}

func joinRefs(items []core.ItemRef) string {
	refs := make([]string, len(items))
	for i, ref := range items {
		refs[i] = ref.String()
	}
	return strings.Join(refs, ", ")
}
