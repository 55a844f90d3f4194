// Package extract turns the rendered "sales by store" view into a
// sales.Result: the period label from the range picker inputs and one Row
// per body row of the data table.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/vendas/collector/sales"
)

// UndefinedPeriod is the label used when the picker inputs cannot be read.
const UndefinedPeriod = "undefined"

// Source is the part of a browser page the extractor reads.
type Source interface {
	// HTML returns the serialised document.
	HTML(ctx context.Context) (string, error)
	// InputValues returns the live value of every input matching selector.
	InputValues(ctx context.Context, selector string) ([]string, error)
}

// Config holds the selectors of the view.
type Config struct {
	PeriodInputs string // the two start/end inputs of the range picker
	Table        string // first match is the data table
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.PeriodInputs == "" {
		c.PeriodInputs = ".ant-calendar-range-picker-input"
	}
	if c.Table == "" {
		c.Table = "table"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor reads a Result from a rendered page.
type Extractor struct {
	cfg Config
}

// New returns an Extractor. Zero-valued fields of cfg get defaults.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg}
}

// Extract reads the period inputs and the table of src. Missing table or
// inputs are not errors: they yield no rows and the undefined label.
func (e *Extractor) Extract(ctx context.Context, src Source) (*sales.Result, error) {
	values, err := src.InputValues(ctx, e.cfg.PeriodInputs)
	if err != nil {
		return nil, fmt.Errorf("extract: period inputs: %w", err)
	}
	html, err := src.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: page html: %w", err)
	}
	res, err := e.FromHTML(html, values)
	if err != nil {
		return nil, err
	}
	e.cfg.Logger.Info("extract: table read",
		"period", res.Period, "rows", len(res.Rows),
		"valid_orders", res.TotalValidOrders, "valid_value", res.TotalValidSalesValue)
	return res, nil
}

// FromHTML builds the Result from a serialised document and the picker
// input values.
func (e *Extractor) FromHTML(html string, periodValues []string) (*sales.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	rows := ParseTable(doc.Find(e.cfg.Table).First())
	return sales.NewResult(Label(periodValues), rows), nil
}

// Label joins the start and end inputs as "<start> ~ <end>".
func Label(values []string) string {
	if len(values) != 2 {
		return UndefinedPeriod
	}
	return values[0] + " ~ " + values[1]
}

// Column positions of the "by store" table.
const (
	colStore = iota
	colMarketplace
	colTotalOrders
	colTotalValue
	colValidOrders
	colValidValue
	colCancelledOrders
	colCancelledValue
	colCustomers
	colPerCustomer
)

// ParseTable maps each tbody row with at least one cell to a Row. Missing
// cells read as empty text, hence zero values.
func ParseTable(table *goquery.Selection) []sales.Row {
	var rows []sales.Row
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		text := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		rows = append(rows, sales.Row{
			Store:               text(colStore),
			Marketplace:         text(colMarketplace),
			TotalOrders:         ParseCount(text(colTotalOrders)),
			TotalValue:          ParseLocaleNumber(text(colTotalValue)),
			ValidOrders:         ParseCount(text(colValidOrders)),
			ValidSalesValue:     ParseLocaleNumber(text(colValidValue)),
			CancelledOrders:     ParseCount(text(colCancelledOrders)),
			CancelledSalesValue: ParseLocaleNumber(text(colCancelledValue)),
			Customers:           ParseCount(text(colCustomers)),
			SalesPerCustomer:    ParseLocaleNumber(text(colPerCustomer)),
		})
	})
	return rows
}
