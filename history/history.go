// Package history retrieves historical OHLCV candles from Deribit through
// the client's RPC plumbing. Fetch paginates public/get_tradingview_chart_data
// backwards from now in batches of up to 1000 candles until exactly the
// requested count has been collected, then returns them in ascending time
// order.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/buger/jsonparser"

	"github.com/luciancaetano/deribit"
)

const (
	// ChunkSize is the server-side cap on candles per request.
	ChunkSize = 1000

	// FetchRequestID is the sentinel request id reserved for the fetcher.
	// Batches are serialized, so a single id never aliases itself.
	FetchRequestID uint64 = 0xC0FFEE

	// batchTimeout bounds the wait for each batch response.
	batchTimeout = 5 * time.Second

	// rateRetryDelay is the pause before retrying a rate-denied request.
	rateRetryDelay = 200 * time.Millisecond
)

// PeriodMs maps a Deribit chart resolution to its period in milliseconds.
// Accepted resolutions are "1", "5", "15", "60" and "1D"; "1D" is treated as
// 1440 minutes here, while the wire keeps the literal "1D".
func PeriodMs(resolution string) (int64, error) {
	switch resolution {
	case "1":
		return 60_000, nil
	case "5":
		return 5 * 60_000, nil
	case "15":
		return 15 * 60_000, nil
	case "60":
		return 60 * 60_000, nil
	case "1D":
		return 1440 * 60_000, nil
	}
	return 0, fmt.Errorf("history: unsupported resolution %q", resolution)
}

// NowMs returns the current wall time in milliseconds since the Unix epoch.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// FormatTimestamp renders a millisecond timestamp as "2006-01-02 15:04:05"
// in local time, for console output.
func FormatTimestamp(tsMs int64) string {
	return time.UnixMilli(tsMs).Format("2006-01-02 15:04:05")
}

// fetchState is shared between the calling goroutine and the dispatcher
// goroutine that runs the batch handlers. The mutex guards out; done carries
// the per-batch completion signal.
type fetchState struct {
	mu   sync.Mutex
	out  []deribit.OHLCV
	done chan struct{}
}

func (s *fetchState) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.out)
}

// signal never blocks the dispatcher: if the fetcher already gave up on this
// batch the notification is simply dropped.
func (s *fetchState) signal() {
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// onSuccess parses the parallel arrays of the chart-data result and appends
// one candle per index. It runs on the dispatcher goroutine; pm's views are
// dead after it returns, so everything is decoded into owned values here.
func (s *fetchState) onSuccess(pm *deribit.ParsedMessage) {
	candles := parseChartData(pm.Result)

	s.mu.Lock()
	s.out = append(s.out, candles...)
	s.mu.Unlock()

	s.signal()
}

// onError signals completion without appending; the fetch loop observes the
// missing progress and stops.
func (s *fetchState) onError(pm *deribit.ParsedMessage) {
	s.signal()
}

// snapshot sorts a copy of the collected candles ascending by timestamp and
// drops the oldest excess so at most n remain. Copying keeps a late batch
// handler from racing the caller's slice.
func (s *fetchState) snapshot(n int) []deribit.OHLCV {
	s.mu.Lock()
	out := make([]deribit.OHLCV, len(s.out))
	copy(out, s.out)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TsMs < out[j].TsMs })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Fetch retrieves exactly n candles for the instrument at the given
// resolution, or fewer if the server ran out of history or a batch timed
// out. The call blocks; the registered handlers run on the client's
// dispatcher goroutine. The returned slice is sorted ascending by TsMs.
//
// n == 0 returns an empty result without issuing any request.
func Fetch(ctx context.Context, c deribit.Client, instrument, resolution string, n int) ([]deribit.OHLCV, error) {
	if n <= 0 {
		return nil, nil
	}

	period, err := PeriodMs(resolution)
	if err != nil {
		return nil, err
	}

	st := &fetchState{
		out:  make([]deribit.OHLCV, 0, n+ChunkSize),
		done: make(chan struct{}, 1),
	}

	currentEnd := NowMs()
	lastLen := 0

	for {
		collected := st.len()
		if collected >= n {
			break
		}

		batch := n - collected
		if batch > ChunkSize {
			batch = ChunkSize
		}
		// The window is inclusive: batch candles span batch-1 intervals.
		start := currentEnd - int64(batch-1)*period

		// Drop any stale completion signal from a timed-out batch.
		select {
		case <-st.done:
		default:
		}

		c.RegisterRPC(FetchRequestID, st.onSuccess, st.onError)

		params := fmt.Sprintf(
			`{"instrument_name":%q,"resolution":%q,"start_timestamp":%d,"end_timestamp":%d}`,
			instrument, resolution, start, currentEnd,
		)
		if !c.SendRPC(FetchRequestID, "public/get_tradingview_chart_data", params) {
			// Rate gate denied; retry the same window.
			select {
			case <-ctx.Done():
				return st.snapshot(n), ctx.Err()
			case <-time.After(rateRetryDelay):
			}
			continue
		}

		timedOut := false
		select {
		case <-st.done:
		case <-ctx.Done():
			return st.snapshot(n), ctx.Err()
		case <-time.After(batchTimeout):
			timedOut = true
		}
		if timedOut {
			break
		}

		if st.len() == lastLen {
			// Server returned nothing for this window; no older history.
			break
		}
		lastLen = st.len()

		// Step past the boundary candle so it is not fetched twice.
		currentEnd = start - 1
	}

	return st.snapshot(n), nil
}

// parseChartData decodes the equal-length parallel arrays of a
// get_tradingview_chart_data result into candles. Indices missing from any
// array terminate the record stream early rather than fabricate values.
func parseChartData(result []byte) []deribit.OHLCV {
	ticks := parseInt64Array(result, "ticks")
	opens := parseFloatArray(result, "open")
	highs := parseFloatArray(result, "high")
	lows := parseFloatArray(result, "low")
	closes := parseFloatArray(result, "close")
	volumes := parseFloatArray(result, "volume")
	costs := parseFloatArray(result, "cost")

	count := len(ticks)
	for _, a := range [][]float64{opens, highs, lows, closes, volumes, costs} {
		if len(a) < count {
			count = len(a)
		}
	}

	candles := make([]deribit.OHLCV, 0, count)
	for i := 0; i < count; i++ {
		candles = append(candles, deribit.OHLCV{
			TsMs:   ticks[i],
			Open:   opens[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: volumes[i],
			Cost:   costs[i],
		})
	}
	return candles
}

func parseInt64Array(data []byte, key string) []int64 {
	var out []int64
	_, _ = jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Number {
			return
		}
		if f, err := jsonparser.ParseFloat(value); err == nil {
			out = append(out, int64(f))
		}
	}, key)
	return out
}

func parseFloatArray(data []byte, key string) []float64 {
	var out []float64
	_, _ = jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Number {
			return
		}
		if f, err := jsonparser.ParseFloat(value); err == nil {
			out = append(out, f)
		}
	}, key)
	return out
}
