// Package ingest turns delimited-text byte streams and materialized SQL
// row sets into populated arenas.
//
// CSV ingestion runs in three stages. A cheap pre-pass scans record
// boundaries (quote-aware) and samples the leading records to lock the
// schema, so every worker parses against an already-decided dtype per
// column. The byte stream is then split into contiguous ranges, each
// beginning exactly at an unquoted record boundary, and parsed by the
// worker pool into per-chunk partial columns. Finally the partials are
// concatenated in original chunk order, which makes the result
// bit-identical for any worker count.
//
// Ingestion is all-or-nothing: the first malformed field, chosen by chunk
// order rather than completion order, aborts the whole run, partial
// buffers are released, and the error carries the row number and byte
// offset of the offending record.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/config"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/logging"
	"github.com/pardox/pardox/internal/parallel"
	"github.com/pardox/pardox/internal/schema"
)

// Options configure CSV ingestion.
type Options struct {
	// Header indicates whether the first record carries column names.
	Header bool
	// Delimiter is the field separator.
	Delimiter rune
	// NullToken, in addition to the empty field, marks a value as null.
	NullToken string
	// SampleRows is the number of records inspected to lock the schema
	// (0 = configured default).
	SampleRows int
	// Workers is the parallelism of the parse stage (0 = one per CPU).
	Workers int
}

// DefaultOptions returns the standard CSV contract: comma-delimited with
// a header row.
func DefaultOptions() Options {
	cfg := config.GetGlobalConfig()
	return Options{
		Header:     true,
		Delimiter:  ',',
		NullToken:  cfg.NullToken,
		SampleRows: cfg.InferenceSampleRows,
		Workers:    cfg.WorkerPoolSize,
	}
}

func (o Options) schemaOptions() schema.Options {
	return schema.Options{NullToken: o.NullToken}
}

// ReadCSVFile ingests a CSV file from disk.
func ReadCSVFile(ctx context.Context, mem memory.Allocator, path string, opts Options) (*arena.Arena, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(ctx, mem, f, opts)
}

// ReadCSV ingests a delimited byte stream into a new arena.
func ReadCSV(ctx context.Context, mem memory.Allocator, r io.Reader, opts Options) (*arena.Arena, error) {
	const op = "ReadCSV"
	start := time.Now()
	log := logging.Named("ingest")

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = config.GetGlobalConfig().InferenceSampleRows
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	starts := scanRecordStarts(data)
	if len(starts) == 0 {
		return arena.New(mem), nil
	}

	names, sample, dataStart, err := samplePrefix(data, opts)
	if err != nil {
		return nil, err
	}
	if names == nil {
		return arena.New(mem), nil
	}

	sch := schema.Infer(names, sample, opts.schemaOptions())

	a := arena.New(mem)
	numRecords := len(starts) - dataStart
	if numRecords <= 0 {
		if err := appendEmptyColumns(a, mem, sch, opts); err != nil {
			a.Release()
			return nil, err
		}
		return a, nil
	}

	chunks := planChunks(starts, int64(len(data)), dataStart, opts.Workers)

	pool := parallel.NewWorkerPool(opts.Workers)
	defer pool.Close()

	results, err := parallel.ProcessIndexedErr(ctx, pool, chunks,
		func(ctx context.Context, _ int, c byteChunk) (chunkResult, error) {
			return parseChunk(ctx, mem, data, c, sch, opts)
		})
	if err != nil {
		releaseResults(results)
		return nil, err
	}

	if err := mergeChunks(a, mem, sch, results); err != nil {
		releaseResults(results)
		a.Release()
		return nil, err
	}

	log.Debug("csv ingested",
		zap.Int("rows", a.NumRows()),
		zap.Int("columns", a.NumCols()),
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return a, nil
}

// samplePrefix reads the header (when present) and up to SampleRows data
// records for type inference. It returns the column names, the sampled
// records, and the index of the first data record.
func samplePrefix(data []byte, opts Options) (names []string, sample [][]string, dataStart int, err error) {
	const op = "ReadCSV"

	pre := csv.NewReader(bytes.NewReader(data))
	pre.Comma = opts.Delimiter
	pre.FieldsPerRecord = -1

	if opts.Header {
		record, readErr := pre.Read()
		if readErr == io.EOF {
			return nil, nil, 0, nil
		}
		if readErr != nil {
			return nil, nil, 0, errors.NewMalformedRowError(op, 1, 0, "invalid header row", readErr)
		}
		names = append([]string(nil), record...)
		dataStart = 1
	}

	for len(sample) < opts.SampleRows {
		offset := pre.InputOffset()
		record, readErr := pre.Read()
		if readErr == io.EOF {
			break
		}
		row := int64(dataStart + len(sample) + 1)
		if readErr != nil {
			return nil, nil, 0, errors.NewMalformedRowError(op, row, offset, "invalid record", readErr)
		}
		if names == nil {
			names = make([]string, len(record))
			for i := range record {
				names[i] = schema.SyntheticName(i)
			}
		}
		if len(record) != len(names) {
			return nil, nil, 0, errors.NewMalformedRowError(op, row, offset, "wrong field count", nil)
		}
		sample = append(sample, record)
	}

	return names, sample, dataStart, nil
}

// byteChunk is one worker's slice of the input: a contiguous byte range
// starting at an unquoted record boundary, plus the index of its first
// record for deterministic error attribution.
type byteChunk struct {
	lo, hi      int64
	firstRecord int // record index within the file, header included
}

type chunkResult struct {
	arrays []arrow.Array
	rows   int
}

func planChunks(starts []int64, size int64, dataStart, workers int) []byteChunk {
	if workers <= 0 {
		workers = parallel.NewWorkerPool(0).NumWorkers()
	}

	n := len(starts) - dataStart
	if workers > n {
		workers = n
	}
	per := (n + workers - 1) / workers

	chunks := make([]byteChunk, 0, workers)
	for lo := 0; lo < n; lo += per {
		hi := lo + per
		if hi > n {
			hi = n
		}
		end := size
		if dataStart+hi < len(starts) {
			end = starts[dataStart+hi]
		}
		chunks = append(chunks, byteChunk{
			lo:          starts[dataStart+lo],
			hi:          end,
			firstRecord: dataStart + lo,
		})
	}
	return chunks
}

// parseChunk parses one byte range against the locked schema into
// per-column partial arrays. Cancellation (an earlier chunk failed) is
// not an error: the chunk releases its buffers and returns an empty
// result so the earlier chunk's error stays the one reported.
func parseChunk(ctx context.Context, mem memory.Allocator, data []byte, c byteChunk, sch *schema.Schema, opts Options) (chunkResult, error) {
	const op = "ReadCSV"

	apps := make([]fieldAppender, sch.NumFields())
	for i, f := range sch.Fields {
		apps[i] = newFieldAppender(mem, f.DType, opts.schemaOptions())
	}
	releaseApps := func() {
		for _, a := range apps {
			a.release()
		}
	}

	rdr := csv.NewReader(bytes.NewReader(data[c.lo:c.hi]))
	rdr.Comma = opts.Delimiter
	rdr.FieldsPerRecord = sch.NumFields()

	local := 0
	for {
		if local%1024 == 0 {
			select {
			case <-ctx.Done():
				releaseApps()
				return chunkResult{}, nil
			default:
			}
		}

		offset := c.lo + rdr.InputOffset()
		row := int64(c.firstRecord + local + 1)

		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			releaseApps()
			return chunkResult{}, errors.NewMalformedRowError(op, row, offset, "invalid record", err)
		}

		for j, field := range record {
			if appErr := apps[j].appendField(field); appErr != nil {
				releaseApps()
				return chunkResult{}, errors.NewMalformedRowError(op, row, offset,
					"value does not parse as "+sch.Fields[j].DType.String()+" for column '"+sch.Fields[j].Name+"'", appErr)
			}
		}
		local++
	}

	arrays := make([]arrow.Array, len(apps))
	for i, a := range apps {
		arrays[i] = a.newArray()
		a.release()
	}
	return chunkResult{arrays: arrays, rows: local}, nil
}

func releaseResults(results []chunkResult) {
	for _, r := range results {
		for _, arr := range r.arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}
}
