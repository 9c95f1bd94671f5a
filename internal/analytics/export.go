package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// ChartRow is one exported point.
type ChartRow struct {
	Series string  `parquet:"name=series, type=BYTE_ARRAY, convertedtype=UTF8"`
	Block  int64   `parquet:"name=block, type=INT64"`
	Value  string  `parquet:"name=value, type=BYTE_ARRAY, convertedtype=UTF8"`
	Number float64 `parquet:"name=number, type=DOUBLE"`
}

// Export writes every point of series to a Parquet file at path.
func Export(path string, series ...Series) (int, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ChartRow), 1)
	if err != nil {
		return 0, fmt.Errorf("parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rows := 0
	for _, s := range series {
		for _, p := range s.Points {
			num, err := decimal.NewFromString(p.Value)
			if err != nil {
				pw.WriteStop()
				return rows, fmt.Errorf("%s block %d: %w", s.Name, p.Block, err)
			}
			f, _ := num.Float64()
			row := ChartRow{Series: s.Name, Block: int64(p.Block), Value: p.Value, Number: f}
			if err := pw.Write(&row); err != nil {
				pw.WriteStop()
				return rows, fmt.Errorf("write row: %w", err)
			}
			rows++
		}
	}
	if err := pw.WriteStop(); err != nil {
		return rows, fmt.Errorf("finish parquet: %w", err)
	}
	return rows, nil
}

// ReadExport loads the rows written by Export.
func ReadExport(path string) ([]ChartRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ChartRow), 1)
	if err != nil {
		return nil, fmt.Errorf("parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]ChartRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}
