package export

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"CryptoBoard/internal/model"
)

// instrumentRecord is the parquet schema of one table row. Column names
// match model.Columns.
type instrumentRecord struct {
	CoinName         string  `parquet:"name=coin_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	CoinSymbol       string  `parquet:"name=coin_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketCap        float64 `parquet:"name=market_cap, type=DOUBLE"`
	PercentChange1h  float64 `parquet:"name=percent_change_1h, type=DOUBLE"`
	PercentChange24h float64 `parquet:"name=percent_change_24h, type=DOUBLE"`
	PercentChange7d  float64 `parquet:"name=percent_change_7d, type=DOUBLE"`
	PercentChange30d float64 `parquet:"name=percent_change_30d, type=DOUBLE"`
	PercentChange90d float64 `parquet:"name=percent_change_90d, type=DOUBLE"`
	Price            float64 `parquet:"name=price, type=DOUBLE"`
	Volume24h        float64 `parquet:"name=volume_24h, type=DOUBLE"`
}

func toRecord(r model.InstrumentRow) instrumentRecord {
	return instrumentRecord{
		CoinName:         r.Name,
		CoinSymbol:       r.Symbol,
		MarketCap:        r.MarketCap,
		PercentChange1h:  r.PercentChange1h,
		PercentChange24h: r.PercentChange24h,
		PercentChange7d:  r.PercentChange7d,
		PercentChange30d: r.PercentChange30d,
		PercentChange90d: r.PercentChange90d,
		Price:            r.Price,
		Volume24h:        r.Volume24h,
	}
}

func (rec instrumentRecord) row() model.InstrumentRow {
	return model.InstrumentRow{
		Name:             rec.CoinName,
		Symbol:           rec.CoinSymbol,
		MarketCap:        rec.MarketCap,
		PercentChange1h:  rec.PercentChange1h,
		PercentChange24h: rec.PercentChange24h,
		PercentChange7d:  rec.PercentChange7d,
		PercentChange30d: rec.PercentChange30d,
		PercentChange90d: rec.PercentChange90d,
		Price:            rec.Price,
		Volume24h:        rec.Volume24h,
	}
}

// WriteParquet writes t to path as a snappy-compressed parquet file.
func WriteParquet(path string, t model.InstrumentTable) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(instrumentRecord), 1)
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, r := range t.Rows {
		if err := pw.Write(toRecord(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}

// ReadParquet loads a table written by WriteParquet.
func ReadParquet(path string, unit model.Unit) (model.InstrumentTable, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return model.Empty(unit), fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(instrumentRecord), 1)
	if err != nil {
		return model.Empty(unit), fmt.Errorf("new parquet reader: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	recs := make([]instrumentRecord, n)
	if n > 0 {
		if err := pr.Read(&recs); err != nil {
			return model.Empty(unit), fmt.Errorf("read rows: %w", err)
		}
	}
	rows := make([]model.InstrumentRow, 0, n)
	for _, rec := range recs {
		rows = append(rows, rec.row())
	}
	return model.InstrumentTable{Unit: unit, Rows: rows}, nil
}
