// Package csvimport parses the CSV holdings-import wire format into a
// keyframe snapshot, tolerating per-row decimal parse quirks without
// failing the whole file.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/snapshot"
)

// RowError records a skipped row without aborting the rest of the import.
type RowError struct {
	Row    int
	Reason string
}

// Result is the outcome of importing one CSV file: the keyframe snapshots
// produced (one per distinct date encountered) and any row-level errors.
type Result struct {
	Snapshots []snapshot.AccountStateSnapshot
	Errors    []RowError
}

const cashColumnPrefix = "cash_"

// parseDecimal mirrors the wire format's documented fallback: a value that
// fails strict decimal parsing is retried as a float64 and converted, so
// that e.g. scientific-notation exports from spreadsheets still import.
func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	if v, err := decimal.NewFromString(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot parse %q as decimal or float", raw)
	}
	return decimal.NewFromFloat(f), nil
}

// Import reads CSV holdings rows (columns: date, symbol, quantity, price,
// currency, plus per-currency cash_<CCY> columns) from r and groups them
// into one AccountStateSnapshot per date, sourced CsvImport. accountID is
// the account the import targets; idFor mints snapshot ids.
func Import(r io.Reader, accountID string, idFor func(accountID string, date time.Time) string, now time.Time) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	cashCols := make(map[string]int) // currency -> column index
	for i, name := range header {
		name = strings.TrimSpace(name)
		if strings.HasPrefix(name, cashColumnPrefix) {
			cashCols[strings.TrimPrefix(name, cashColumnPrefix)] = i
			continue
		}
		colIdx[name] = i
	}

	byDate := make(map[string]*snapshot.AccountStateSnapshot)
	var errs []RowError
	rowNum := 1 // header is row 0

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			errs = append(errs, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}

		dateStr, err := field(rec, colIdx, "date")
		if err != nil {
			errs = append(errs, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
		if err != nil {
			errs = append(errs, RowError{Row: rowNum, Reason: fmt.Sprintf("invalid date %q: %v", dateStr, err)})
			continue
		}

		snap, ok := byDate[dateStr]
		if !ok {
			s := snapshot.AccountStateSnapshot{
				ID:           idFor(accountID, date),
				AccountID:    accountID,
				Date:         date,
				Source:       snapshot.SourceCSVImport,
				Positions:    make(map[string]snapshot.PositionFinancials),
				CashBalances: make(map[string]decimal.Decimal),
				CreatedAt:    now,
			}
			byDate[dateStr] = &s
			snap = &s
		}

		for currency, idx := range cashCols {
			if idx >= len(rec) || strings.TrimSpace(rec[idx]) == "" {
				continue
			}
			amount, err := parseDecimal(rec[idx])
			if err != nil {
				errs = append(errs, RowError{Row: rowNum, Reason: fmt.Sprintf("cash_%s: %v", currency, err)})
				continue
			}
			snap.CashBalances[currency] = snap.CashBalances[currency].Add(amount)
		}

		symbol, symErr := field(rec, colIdx, "symbol")
		if symErr != nil || strings.TrimSpace(symbol) == "" {
			continue // cash-only row
		}

		qtyStr, _ := field(rec, colIdx, "quantity")
		priceStr, _ := field(rec, colIdx, "price")
		currency, _ := field(rec, colIdx, "currency")

		qty, err := parseDecimal(qtyStr)
		if err != nil {
			errs = append(errs, RowError{Row: rowNum, Reason: fmt.Sprintf("quantity: %v", err)})
			continue
		}
		price, err := parseDecimal(priceStr)
		if err != nil {
			errs = append(errs, RowError{Row: rowNum, Reason: fmt.Sprintf("price: %v", err)})
			continue
		}

		snap.Positions[symbol] = snapshot.PositionFinancials{
			Quantity:       qty,
			AverageCost:    price,
			TotalCostBasis: qty.Mul(price),
			Currency:       strings.TrimSpace(currency),
		}
	}

	result := Result{Errors: errs}
	for _, s := range byDate {
		result.Snapshots = append(result.Snapshots, *s)
	}
	return result, nil
}

func field(rec []string, colIdx map[string]int, name string) (string, error) {
	idx, ok := colIdx[name]
	if !ok || idx >= len(rec) {
		return "", fmt.Errorf("missing column %q", name)
	}
	return rec[idx], nil
}
