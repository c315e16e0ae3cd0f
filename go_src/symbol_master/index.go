package symbol_master

import (
	"strings"

	"fyersbot/go_src/trade_exceptions"

	"github.com/gocarina/gocsv"
)

// IndexConstituent is one row of an index constituent list such as ind_nifty500list.csv.
type IndexConstituent struct {
	CompanyName string `csv:"Company Name"`
	Industry    string `csv:"Industry"`
	Symbol      string `csv:"Symbol"`
	Series      string `csv:"Series"`
	ISIN        string `csv:"ISIN Code"`
}

// ParseIndexConstituents reads a constituent CSV with a header row. The ISIN Code column is required.
func ParseIndexConstituents(data []byte) ([]IndexConstituent, error) {
	var rows []IndexConstituent
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, &trade_exceptions.ParseError{Message: "index constituents: " + err.Error(), Endpoint: "index_constituents"}
	}
	members := rows[:0]
	for _, r := range rows {
		r.ISIN = strings.TrimSpace(r.ISIN)
		if r.ISIN != "" {
			members = append(members, r)
		}
	}
	if len(members) == 0 && len(rows) > 0 {
		return nil, &trade_exceptions.ParseError{Message: "index constituents have no ISIN Code column", Endpoint: "index_constituents"}
	}
	return members, nil
}
