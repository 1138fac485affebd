package domain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CoinScale is the number of fractional decimal digits carried by a balance
// or transfer amount. One AirCoin is 10^8 subunits.
const CoinScale = 8

// Coin is a quantity of AirCoin in subunits. Keeping balances as scaled
// integers makes ledger arithmetic exact; the 8-digit external precision
// contract is applied when parsing and formatting.
type Coin int64

// OneCoin is the subunit value of a single AirCoin.
const OneCoin Coin = 100_000_000

var ErrAmountOutOfRange = errors.New("amount out of representable range")

// ParseCoin converts a decimal string (e.g. "30", "0.5", "12.34567891") into
// subunits. Values with more than 8 fractional digits are rounded half away
// from zero, matching the ledger's per-operation rounding policy.
func ParseCoin(s string) (Coin, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return coinFromDecimal(d)
}

func coinFromDecimal(d decimal.Decimal) (Coin, error) {
	shifted := d.Round(CoinScale).Shift(CoinScale)
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return Coin(bi.Int64()), nil
}

// Decimal returns the amount as a decimal in whole AirCoin.
func (c Coin) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -CoinScale)
}

// String renders the amount with exactly 8 fractional digits, e.g. "70.00000000".
func (c Coin) String() string {
	return c.Decimal().StringFixed(CoinScale)
}

// MarshalJSON encodes the amount as a fixed-precision decimal string so the
// 8-digit contract survives JSON number handling in any client.
func (c Coin) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and decimal strings.
func (c *Coin) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	parsed, err := ParseCoin(string(raw))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
