// Package candlestore persists OHLCV candles to disk in two formats: CSV
// for interoperability with analysis tooling, and a little-endian binary
// layout with a leading record count that loads back without any parsing.
package candlestore

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/luciancaetano/deribit"
)

var csvHeader = []string{"ts_ms", "open", "high", "low", "close", "volume", "cost"}

// SaveCSV writes candles with a header row. Floats use the shortest exact
// representation.
func SaveCSV(path string, candles []deribit.OHLCV) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}

	row := make([]string, len(csvHeader))
	for _, c := range candles {
		row[0] = strconv.FormatInt(c.TsMs, 10)
		row[1] = strconv.FormatFloat(c.Open, 'g', -1, 64)
		row[2] = strconv.FormatFloat(c.High, 'g', -1, 64)
		row[3] = strconv.FormatFloat(c.Low, 'g', -1, 64)
		row[4] = strconv.FormatFloat(c.Close, 'g', -1, 64)
		row[5] = strconv.FormatFloat(c.Volume, 'g', -1, 64)
		row[6] = strconv.FormatFloat(c.Cost, 'g', -1, 64)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("candlestore: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}
	return f.Sync()
}

// LoadCSV reads a file written by SaveCSV. The header row is skipped; a
// malformed row is an error rather than a silent zero.
func LoadCSV(path string) ([]deribit.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("candlestore: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("candlestore: %w", err)
	}

	var candles []deribit.OHLCV
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("candlestore: row %d has %d fields, want %d", i, len(row), len(csvHeader))
		}

		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("candlestore: row %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseRow(row []string) (deribit.OHLCV, error) {
	var c deribit.OHLCV
	var err error

	if c.TsMs, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return c, err
	}

	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Cost}
	for i, dst := range fields {
		if *dst, err = strconv.ParseFloat(row[i+1], 64); err != nil {
			return c, err
		}
	}
	return c, nil
}

// SaveBinary writes a uint64 record count followed by the raw records
// (int64 timestamp, six float64 fields), all little-endian.
func SaveBinary(path string, candles []deribit.OHLCV) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(len(candles))); err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, candles); err != nil {
		return fmt.Errorf("candlestore: %w", err)
	}
	return f.Sync()
}

// LoadBinary reads a file written by SaveBinary.
func LoadBinary(path string) ([]deribit.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("candlestore: %w", err)
	}
	defer f.Close()

	var count uint64
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("candlestore: %w", err)
	}

	candles := make([]deribit.OHLCV, count)
	if err := binary.Read(f, binary.LittleEndian, candles); err != nil {
		return nil, fmt.Errorf("candlestore: %w", err)
	}
	return candles, nil
}
