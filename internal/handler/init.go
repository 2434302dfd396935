package handler

import (
	"github.com/TNZtims/bazaar-pos-sub000/internal/order"
	"github.com/TNZtims/bazaar-pos-sub000/internal/stock"
)

var (
	ledger *stock.Ledger
	orders *order.Controller
)

// Init wires the stock ledger and order lifecycle controller into the
// handler package. Must be called once at startup before routes are served.
func Init(stockLedger *stock.Ledger, orderController *order.Controller) {
	ledger = stockLedger
	orders = orderController
}
