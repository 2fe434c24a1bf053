package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"memkv/pkg/config"
	"memkv/pkg/dberrors"
)

func TestRun_Backends(t *testing.T) {
	for _, name := range []string{"m", "h", "s"} {
		for _, keys := range []string{"seq", "uuid"} {
			t.Run(name+"/"+keys, func(t *testing.T) {
				b, err := newBackend(name, config.DefaultStore())
				if err != nil {
					t.Fatalf("newBackend failed: %v", err)
				}

				bench := config.BenchConfig{Iterations: 2500, Keys: keys, ReportEvery: 1000}
				var out bytes.Buffer
				res, err := run(context.Background(), b.kv, bench, &out)
				if err != nil {
					t.Fatalf("run failed: %v", err)
				}
				if res.ops != 2500 {
					t.Fatalf("Expected 2500 ops, got %d", res.ops)
				}

				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				if len(lines) != 3 {
					t.Fatalf("Expected 3 progress lines, got %q", out.String())
				}
				for i, prefix := range []string{"1000\t", "2000\t", "2500\t"} {
					if !strings.HasPrefix(lines[i], prefix) {
						t.Fatalf("Line %d: expected prefix %q, got %q", i, prefix, lines[i])
					}
				}

				if err := verifyKeys(b.kv, bench); err != nil {
					t.Fatalf("verifyKeys failed: %v", err)
				}
			})
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	b, _ := newBackend("h", config.DefaultStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bench := config.BenchConfig{Iterations: 100, Keys: "seq", ReportEvery: 10}
	res, err := run(ctx, b.kv, bench, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if res.ops > 100 {
		t.Fatalf("Unexpected op count %d", res.ops)
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := newBackend("x", config.DefaultStore()); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := newKeyFunc("random"); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestKeyFunc(t *testing.T) {
	seq, _ := newKeyFunc("seq")
	if got := seq(258); !bytes.Equal(got, []byte{2, 1, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("Expected little-endian 258, got %v", got)
	}

	id, _ := newKeyFunc("uuid")
	first := bytes.Clone(id(7))
	if len(first) != 16 || !bytes.Equal(first, id(7)) {
		t.Fatalf("Expected stable 16-byte uuid keys, got %x", first)
	}
	if bytes.Equal(first, id(8)) {
		t.Fatal("Distinct indexes produced the same uuid")
	}
}

func TestPrintResult(t *testing.T) {
	b, _ := newBackend("m", config.DefaultStore())
	bench := config.BenchConfig{Iterations: 100, Keys: "seq", ReportEvery: 0}
	res, err := run(context.Background(), b.kv, bench, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var out bytes.Buffer
	printResult(&out, bench, res, b)

	// 16 slots grow at 13, 25, 49 and 97 entries.
	for _, want := range []string{"backend=memkv", "entries=100", "capacity=256", "memkv_rehash_total 4"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("Expected %q in output:\n%s", want, out.String())
		}
	}
}
