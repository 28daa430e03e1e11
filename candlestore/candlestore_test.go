package candlestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luciancaetano/deribit"
)

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}

func sampleCandles() []deribit.OHLCV {
	return []deribit.OHLCV{
		{TsMs: 1700000000000, Open: 37000.5, High: 37100, Low: 36950.25, Close: 37080, Volume: 12.5, Cost: 463500.75},
		{TsMs: 1700003600000, Open: 37080, High: 37250.5, Low: 37000, Close: 37200, Volume: 8.125, Cost: 301275},
		{TsMs: 1700007200000, Open: 37200, High: 37300, Low: 36800, Close: 36900.875, Volume: 21, Cost: 777000},
	}
}

// TestCSVRoundTrip tests that candles survive a save/load cycle unchanged
func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "candles.csv")
	want := sampleCandles()

	if err := SaveCSV(path, want); err != nil {
		t.Fatalf("SaveCSV() = %v", err)
	}

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("loaded %d candles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candle %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestBinaryRoundTrip tests the count-prefixed binary format
func TestBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "candles.bin")
	want := sampleCandles()

	if err := SaveBinary(path, want); err != nil {
		t.Fatalf("SaveBinary() = %v", err)
	}

	got, err := LoadBinary(path)
	if err != nil {
		t.Fatalf("LoadBinary() = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("loaded %d candles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candle %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestBinaryEmpty tests persisting an empty dataset
func TestBinaryEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := SaveBinary(path, nil); err != nil {
		t.Fatalf("SaveBinary() = %v", err)
	}

	got, err := LoadBinary(path)
	if err != nil {
		t.Fatalf("LoadBinary() = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("loaded %d candles from empty file", len(got))
	}
}

// TestLoadCSVMalformedRow tests that a bad row is an error, not a zero candle
func TestLoadCSVMalformedRow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := SaveCSV(path, sampleCandles()); err != nil {
		t.Fatal(err)
	}

	// Corrupt the file by appending a non-numeric row.
	appendLine(t, path, "not-a-number,1,2,3,4,5,6")

	if _, err := LoadCSV(path); err == nil {
		t.Error("LoadCSV() accepted a malformed row")
	}
}

// TestLoadMissingFile tests the open error paths
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.csv")
	if _, err := LoadCSV(missing); err == nil {
		t.Error("LoadCSV() on a missing file succeeded")
	}
	if _, err := LoadBinary(missing); err == nil {
		t.Error("LoadBinary() on a missing file succeeded")
	}
}
