// Package sales defines the records produced by a collection run and kept
// in the history log. JSON field names follow the history file written by
// earlier versions of the collector and must not change.
package sales

import "time"

// Row is one line of the "by store" sales table.
type Row struct {
	Store               string  `json:"loja"`
	Marketplace         string  `json:"marketplace"`
	TotalOrders         int     `json:"totalPedidos"`
	TotalValue          float64 `json:"valorTotal"`
	ValidOrders         int     `json:"pedidosValidos"`
	ValidSalesValue     float64 `json:"valorVendasValidas"`
	CancelledOrders     int     `json:"pedidosCancelados"`
	CancelledSalesValue float64 `json:"valorVendasCanceladas"`
	Customers           int     `json:"clientes"`
	SalesPerCustomer    float64 `json:"vendasPorCliente"`
}

// Result is the outcome of one collection run.
type Result struct {
	Period               string  `json:"periodo"`
	Rows                 []Row   `json:"detalhes"`
	TotalValidOrders     int     `json:"pedidosValidos"`
	TotalValidSalesValue float64 `json:"valorVendasValidas"`
}

// NewResult builds a Result whose totals are the row-wise sums of
// ValidOrders and ValidSalesValue. Rows is never nil.
func NewResult(period string, rows []Row) *Result {
	if rows == nil {
		rows = []Row{}
	}
	res := &Result{Period: period, Rows: rows}
	for _, r := range rows {
		res.TotalValidOrders += r.ValidOrders
		res.TotalValidSalesValue += r.ValidSalesValue
	}
	return res
}

// Entry is one appended record of the history log.
type Entry struct {
	Timestamp   time.Time `json:"data"`
	Period      string    `json:"periodo"`
	TotalOrders int       `json:"totalPedidos"`
	TotalValue  float64   `json:"totalValor"`
	Rows        []Row     `json:"detalhes"`
}

// NewEntry stamps res at t (stored in UTC).
func NewEntry(res *Result, t time.Time) Entry {
	rows := res.Rows
	if rows == nil {
		rows = []Row{}
	}
	return Entry{
		Timestamp:   t.UTC(),
		Period:      res.Period,
		TotalOrders: res.TotalValidOrders,
		TotalValue:  res.TotalValidSalesValue,
		Rows:        rows,
	}
}
