package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"memkv/pkg/config"
	"memkv/pkg/db"
	"memkv/pkg/dberrors"
	"memkv/pkg/listener"
	"memkv/pkg/memtable"
	"memkv/pkg/metrics"
	"memkv/pkg/store"
)

type backend struct {
	name  string
	kv    db.KV
	store *store.Store
	reg   *prometheus.Registry
}

func newBackend(name string, cfg config.StoreConfig) (*backend, error) {
	switch name {
	case "m", "":
		reg := prometheus.NewRegistry()
		s, err := store.New(cfg,
			store.WithLogger(slog.Default()),
			store.WithMetrics(metrics.NewPrometheus(reg, "memkv")),
		)
		if err != nil {
			return nil, err
		}
		return &backend{name: "memkv", kv: s, store: s, reg: reg}, nil
	case "h":
		return &backend{name: "map", kv: db.NewMap()}, nil
	case "s":
		return &backend{name: "skipmap", kv: memtable.New()}, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", dberrors.ErrInvalidArgument, name)
}

// keyFunc returns the key of the i-th insertion. The returned slice may be
// reused by the next call.
type keyFunc func(i int) []byte

func newKeyFunc(mode string) (keyFunc, error) {
	switch mode {
	case "seq", "":
		buf := make([]byte, 8)
		return func(i int) []byte {
			binary.LittleEndian.PutUint64(buf, uint64(i))
			return buf
		}, nil
	case "uuid":
		var seed [8]byte
		return func(i int) []byte {
			binary.LittleEndian.PutUint64(seed[:], uint64(i))
			u := uuid.NewSHA1(uuid.NameSpaceOID, seed[:])
			return u[:]
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown key mode %q", dberrors.ErrInvalidArgument, mode)
}

func valueFor(i int) []byte {
	return bytes.Repeat([]byte(fmt.Sprintf("!!!!%d!!!!", i)), 4)
}

type progress struct {
	done    int
	elapsed time.Duration
}

type result struct {
	ops      int
	duration time.Duration
}

// run inserts bench.Iterations pairs into kv, printing "count\tseconds" to
// out every bench.ReportEvery insertions and once more at the end.
func run(ctx context.Context, kv db.KV, bench config.BenchConfig, out io.Writer) (result, error) {
	key, err := newKeyFunc(bench.Keys)
	if err != nil {
		return result{}, err
	}

	reports := make(chan progress)
	l := listener.New(reports, func(p progress) error {
		_, err := fmt.Fprintf(out, "%d\t%.2f\n", p.done, p.elapsed.Seconds())
		return err
	})
	l.Start(ctx)

	report := func(p progress) bool {
		select {
		case reports <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var (
		runErr error
		done   int
		start  = time.Now()
	)
	for i := 1; i <= bench.Iterations; i++ {
		if err := kv.Set(key(i), valueFor(i)); err != nil {
			runErr = fmt.Errorf("failed to set key %d: %w", i, err)
			break
		}
		done = i

		if bench.ReportEvery > 0 && i%bench.ReportEvery == 0 && !report(progress{done: i, elapsed: time.Since(start)}) {
			break
		}
	}
	elapsed := time.Since(start)

	report(progress{done: done, elapsed: elapsed})
	close(reports)

	if err := l.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	return result{ops: done, duration: elapsed}, runErr
}

func verifyKeys(kv db.KV, bench config.BenchConfig) error {
	key, err := newKeyFunc(bench.Keys)
	if err != nil {
		return err
	}

	for i := 1; i <= bench.Iterations; i++ {
		v, ok := kv.Get(key(i))
		if !ok {
			return fmt.Errorf("%w: key %d", dberrors.ErrNotFound, i)
		}
		if !bytes.Equal(v, valueFor(i)) {
			return fmt.Errorf("key %d holds %q", i, v)
		}
	}

	if kv.Len() != bench.Iterations {
		return fmt.Errorf("expected %d entries, got %d", bench.Iterations, kv.Len())
	}
	return nil
}

func printResult(out io.Writer, bench config.BenchConfig, res result, b *backend) {
	opsPerSec := 0.0
	if res.duration > 0 {
		opsPerSec = float64(res.ops) / res.duration.Seconds()
	}
	fmt.Fprintf(out, "backend=%s keys=%s ops=%d elapsed=%v ops/sec=%.0f\n",
		b.name, bench.Keys, res.ops, res.duration.Round(time.Millisecond), opsPerSec)

	if b.store != nil {
		st := b.store.Stats()
		fmt.Fprintf(out, "entries=%d segments=%d current=%d capacity=%d occupied=%d rehashes=%d rotations=%d compactions=%d relocated=%d data=%d garbage=%d\n",
			st.Entries, st.Segments, st.CurrentSegment, st.Capacity, st.Occupied,
			st.Rehashes, st.Rotations, st.Compactions, st.Relocated, st.DataBytes, st.GarbageBytes)
	}
	if b.reg != nil {
		printMetrics(out, b.reg)
	}
}

func printMetrics(out io.Writer, reg prometheus.Gatherer) {
	families, err := reg.Gather()
	if err != nil {
		slog.Warn("failed to gather metrics", "err", err)
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(out, "%s_count %d\n%s_sum %g\n", mf.GetName(), h.GetSampleCount(), mf.GetName(), h.GetSampleSum())
			}
		}
	}
}
