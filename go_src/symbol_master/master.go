package symbol_master

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fyersbot/go_src/trade_exceptions"

	"github.com/sirupsen/logrus"
)

// Column positions in the headerless Fyers symbol master (sym_details/NSE_CM.csv).
const (
	colFyToken = iota
	colSymbolDetails
	colInstrumentType
	colLotSize
	colTickSize
	colISIN
	colTradingSession
	colLastUpdate
	colExpiry
	colSymbol
	colExchange
	colSegment
	colScripCode
	colUnderlyingScripCode
	colStrikePrice
	colOptionType
	colUnderlyingFyToken

	minMasterColumns = colSymbol + 1
)

// SymbolDetail is one row of the Fyers symbol master.
type SymbolDetail struct {
	FyToken             string
	Details             string
	InstrumentType      string
	LotSize             int
	TickSize            float64
	ISIN                string
	TradingSession      string
	LastUpdate          string
	Expiry              string
	Symbol              string // e.g. "NSE:SBIN-EQ"
	Exchange            string
	Segment             string
	ScripCode           string
	UnderlyingScripCode string
	StrikePrice         float64
	OptionType          string
	UnderlyingFyToken   string
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseSymbolMaster reads the headerless master. Rows too short to carry a symbol are skipped.
func ParseSymbolMaster(data []byte) ([]SymbolDetail, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var details []SymbolDetail
	skipped := 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &trade_exceptions.ParseError{Message: fmt.Sprintf("symbol master line %d: %v", line, err), Endpoint: "symbol_master"}
		}
		if len(record) < minMasterColumns || field(record, colSymbol) == "" {
			skipped++
			continue
		}
		lot, _ := strconv.Atoi(field(record, colLotSize))
		tick, _ := strconv.ParseFloat(field(record, colTickSize), 64)
		strike, _ := strconv.ParseFloat(field(record, colStrikePrice), 64)
		details = append(details, SymbolDetail{
			FyToken:             field(record, colFyToken),
			Details:             field(record, colSymbolDetails),
			InstrumentType:      field(record, colInstrumentType),
			LotSize:             lot,
			TickSize:            tick,
			ISIN:                field(record, colISIN),
			TradingSession:      field(record, colTradingSession),
			LastUpdate:          field(record, colLastUpdate),
			Expiry:              field(record, colExpiry),
			Symbol:              field(record, colSymbol),
			Exchange:            field(record, colExchange),
			Segment:             field(record, colSegment),
			ScripCode:           field(record, colScripCode),
			UnderlyingScripCode: field(record, colUnderlyingScripCode),
			StrikePrice:         strike,
			OptionType:          field(record, colOptionType),
			UnderlyingFyToken:   field(record, colUnderlyingFyToken),
		})
	}
	if skipped > 0 {
		logrus.Debugf("Skipped %d short rows in symbol master", skipped)
	}
	return details, nil
}
