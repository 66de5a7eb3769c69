// Package pricing holds the money arithmetic shared by carts and orders.
package pricing

import "github.com/shopspring/decimal"

// VATRate is the flat VAT rate applied to every order
var VATRate = decimal.RequireFromString("0.20")

// VATPrices returns the VAT amount and the VAT-inclusive price for a net price.
// Both are rounded to cents.
func VATPrices(net decimal.Decimal) (vatAmount, inclVATPrice decimal.Decimal) {
	vatAmount = net.Mul(VATRate).Round(2)
	inclVATPrice = net.Mul(decimal.NewFromInt(1).Add(VATRate)).Round(2)
	return vatAmount, inclVATPrice
}

// LinePrice returns the price of quantity units at unitPrice
func LinePrice(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
