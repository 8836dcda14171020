package connector

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"dataclean/internal/dataset"
)

// readParquet loads a Parquet file through the Arrow bridge.
func readParquet(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	arrowTable, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	defer arrowTable.Release()

	return fromArrowTable(arrowTable)
}

func fromArrowTable(at arrow.Table) (*dataset.Table, error) {
	names := make([]string, at.NumCols())
	for i := 0; i < int(at.NumCols()); i++ {
		names[i] = at.Schema().Field(i).Name
	}
	t, err := dataset.New(names...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	columns := make([][]dataset.Value, at.NumCols())
	for c := 0; c < int(at.NumCols()); c++ {
		values := make([]dataset.Value, 0, at.NumRows())
		for _, chunk := range at.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				values = append(values, arrowValue(chunk, i))
			}
		}
		columns[c] = values
	}

	cells := make([]dataset.Value, at.NumCols())
	for r := 0; r < int(at.NumRows()); r++ {
		for c := range cells {
			cells[c] = columns[c][r]
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
	}
	return t, nil
}

func arrowValue(a arrow.Array, i int) dataset.Value {
	if a.IsNull(i) {
		return dataset.Null()
	}
	switch arr := a.(type) {
	case *array.Int64:
		return dataset.Int(arr.Value(i))
	case *array.Int32:
		return dataset.Int(int64(arr.Value(i)))
	case *array.Float64:
		return dataset.Float(arr.Value(i))
	case *array.Float32:
		return dataset.Float(float64(arr.Value(i)))
	case *array.Boolean:
		return dataset.Bool(arr.Value(i))
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return dataset.Time(arr.Value(i).ToTime(unit).UTC())
	case *array.Date32:
		return dataset.Time(arr.Value(i).ToTime().UTC())
	case *array.String:
		return dataset.String(arr.Value(i))
	case *array.LargeString:
		return dataset.String(arr.Value(i))
	default:
		return dataset.String(a.ValueStr(i))
	}
}

// writeParquet persists the table with snappy compression. Columns whose
// content uniformly matches a scalar kind are written as typed Arrow
// columns; everything else falls back to nullable strings.
func writeParquet(t *dataset.Table, path string) error {
	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, t.NumCols())
	arrays := make([]arrow.Array, t.NumCols())
	defer func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()

	for c, col := range t.Columns() {
		inf := dataset.InferColumn(&t.Columns()[c])
		kind := inf.Kind
		if inf.Conformance < 1 {
			kind = dataset.KindString
		}
		arr, dt := buildArrowColumn(mem, col.Values, kind)
		arrays[c] = arr
		fields[c] = arrow.Field{Name: col.Name, Type: dt, Nullable: true}
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, arrays, int64(t.NumRows()))
	defer rec.Release()
	arrowTable := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer arrowTable.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	writer, err := pqarrow.NewFileWriter(schema, f, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteTable(arrowTable, arrowTable.NumRows()); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

func buildArrowColumn(mem memory.Allocator, values []dataset.Value, kind dataset.Kind) (arrow.Array, arrow.DataType) {
	switch kind {
	case dataset.KindInt:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if cv, ok := dataset.Coerce(v, dataset.KindInt); ok && !cv.IsNull() {
				b.Append(cv.Int())
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), arrow.PrimitiveTypes.Int64
	case dataset.KindFloat:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if cv, ok := dataset.Coerce(v, dataset.KindFloat); ok && !cv.IsNull() {
				b.Append(cv.Float())
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), arrow.PrimitiveTypes.Float64
	case dataset.KindBool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if cv, ok := dataset.Coerce(v, dataset.KindBool); ok && !cv.IsNull() {
				b.Append(cv.Bool())
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), arrow.FixedWidthTypes.Boolean
	case dataset.KindTime:
		dt := &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
		b := array.NewTimestampBuilder(mem, dt)
		defer b.Release()
		for _, v := range values {
			if cv, ok := dataset.Coerce(v, dataset.KindTime); ok && !cv.IsNull() {
				b.Append(arrow.Timestamp(cv.Time().UTC().UnixMicro()))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), dt
	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v.IsNull() {
				b.AppendNull()
			} else {
				b.Append(v.Format())
			}
		}
		return b.NewArray(), arrow.BinaryTypes.String
	}
}
