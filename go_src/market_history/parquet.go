package market_history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetBar is the on-disk row of the OHLC export.
type parquetBar struct {
	Symbol string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date   string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Time   string  `parquet:"name=time, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open   float64 `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High   float64 `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low    float64 `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close  float64 `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume float64 `parquet:"name=volume, type=DOUBLE, encoding=PLAIN"`
	Filled bool    `parquet:"name=filled, type=BOOLEAN"`
}

const parquetParallelism = 4

// WriteParquet replaces path with a gzip-compressed parquet file holding bars.
func WriteParquet(path string, bars []Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parquet directory: %w", err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(parquetBar), parquetParallelism)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024

	for _, b := range bars {
		row := parquetBar{
			Symbol: b.Symbol,
			Date:   b.DateString(),
			Time:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Filled: b.Filled,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	logrus.Infof("Wrote %d bars to %s", len(bars), path)
	return nil
}

// ReadParquet loads a file written by WriteParquet.
func ReadParquet(path string) ([]Bar, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetBar), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]parquetBar, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		day, err := ParseDay(r.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q in %s: %w", r.Date, path, err)
		}
		bars = append(bars, Bar{
			Symbol: r.Symbol,
			Date:   day,
			Time:   r.Time,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
			Filled: r.Filled,
		})
	}
	return bars, nil
}
