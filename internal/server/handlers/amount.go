package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
)

// Amount accepts a JSON number or string and keeps its raw text, so that
// "12,5" and 12.5 both reach models.ParseAmount.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// parser collects the first amount error across several fields.
type parser struct {
	err error
}

func (p *parser) amount(field string, raw Amount) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := models.ParseAmount(field, string(raw))
	if err != nil {
		p.err = err
	}
	return d
}
