// Package repl is a line-oriented shell over an in-process store.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"

	"memkv/pkg/batch"
	"memkv/pkg/config"
	"memkv/pkg/dberrors"
	"memkv/pkg/store"
)

const help = `commands:
  set <key> <value>           store a value
  mset <key> <value> [...]    store several pairs in one batch
  get <key>                   print a value or (nil)
  fetch <key> [default]       print a value, the default, or an error
  len                         number of keys
  stats                       store statistics
  keys                        list every key
  help                        this text
  exit                        leave
arguments follow shell quoting rules`

var errUsage = fmt.Errorf("%w: wrong number of arguments", dberrors.ErrInvalidArgument)

type Session struct {
	store *store.Store
	out   io.Writer
}

func New(s *store.Store, out io.Writer) *Session {
	return &Session{store: s, out: out}
}

// Run executes commands read from in until EOF or exit. Command errors are
// printed and do not end the session.
func (r *Session) Run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), 16*config.MiB)

	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		quit, err := r.Execute(line)
		if err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs a single command line and reports whether the session should
// end.
func (r *Session) Execute(line string) (bool, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return false, fmt.Errorf("parse error: %w", err)
	}
	if len(words) == 0 {
		return false, nil
	}

	cmd, args := strings.ToLower(words[0]), words[1:]
	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprintln(r.out, help)
	case "set":
		if len(args) != 2 {
			return false, errUsage
		}
		if err := r.store.SetString(args[0], args[1]); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "OK")
	case "mset":
		if len(args) == 0 || len(args)%2 != 0 {
			return false, errUsage
		}
		wb := batch.New()
		for i := 0; i < len(args); i += 2 {
			wb.Put([]byte(args[i]), []byte(args[i+1]))
		}
		if err := r.store.Write(wb); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "OK %d\n", wb.Count())
	case "get":
		if len(args) != 1 {
			return false, errUsage
		}
		v, ok := r.store.GetString(args[0])
		if !ok {
			fmt.Fprintln(r.out, "(nil)")
			break
		}
		fmt.Fprintf(r.out, "%q\n", v)
	case "fetch":
		return false, r.fetch(args)
	case "len":
		fmt.Fprintln(r.out, r.store.Len())
	case "stats":
		st := r.store.Stats()
		fmt.Fprintf(r.out, "entries %d\noccupied %d\ncapacity %d\nsegments %d\ncurrent %d\nrehashes %d\nrotations %d\ncompactions %d\nrelocated %d\ndata %d\ngarbage %d\n",
			st.Entries, st.Occupied, st.Capacity, st.Segments, st.CurrentSegment,
			st.Rehashes, st.Rotations, st.Compactions, st.Relocated, st.DataBytes, st.GarbageBytes)
	case "keys":
		r.store.Range(func(key, _ []byte) bool {
			fmt.Fprintf(r.out, "%q\n", key)
			return true
		})
	default:
		return false, fmt.Errorf("%w: unknown command %q", dberrors.ErrInvalidArgument, cmd)
	}

	return false, nil
}

func (r *Session) fetch(args []string) error {
	var opts []store.FetchOption
	switch len(args) {
	case 1:
	case 2:
		opts = append(opts, store.WithDefault([]byte(args[1])))
	default:
		return errUsage
	}

	v, err := r.store.Fetch([]byte(args[0]), opts...)
	if errors.Is(err, dberrors.ErrNotFound) {
		return fmt.Errorf("key not found: %q", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%q\n", v)
	return nil
}
