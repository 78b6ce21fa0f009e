package task

import (
	"fmt"
	"strconv"
	"strings"
)

// Balance is the account credit, optionally with the currency code
// the service appends to the amount.
type Balance struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// ParseBalance splits a wallet string such as "12.50USD". Digits and
// the decimal point form the amount; every other character is part
// of the currency.
func ParseBalance(wallet string) (Balance, error) {
	var amount, currency strings.Builder
	for _, r := range strings.TrimSpace(wallet) {
		if (r >= '0' && r <= '9') || r == '.' {
			amount.WriteRune(r)
		} else {
			currency.WriteRune(r)
		}
	}
	if amount.Len() == 0 {
		return Balance{}, fmt.Errorf("balance %q has no numeric amount", wallet)
	}
	v, err := strconv.ParseFloat(amount.String(), 64)
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance amount %q: %w", amount.String(), err)
	}
	return Balance{
		Amount:   v,
		Currency: strings.TrimSpace(currency.String()),
	}, nil
}
