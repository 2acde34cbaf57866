// Command numrepl is an interactive front-end for experimenting with the
// base-b number codec: type a number to round-trip it through the parser
// and formatter, or a backslash command to change bases, precision, and
// input interpretation.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spssio/spssio/numfmt"
	"github.com/spssio/spssio/numsys"
)

const help = `commands:
  \base in|out B        set the input or output base (2..64)
  \precision K          set the output precision in significand digits
  \context in|out BITS  set the precise backend's working precision (32|64|128)
  \in MODE              input interpretation: tool|double|float|raw|reshape
  \digits ALPHABET      set a custom digit alphabet for both bases
  \h                    this help
  \q                    quit
anything else is treated as a number to round-trip.`

type session struct {
	alphabet   string
	baseIn     int
	baseOut    int
	nsIn       *numsys.NumberSystem
	nsOut      *numsys.NumberSystem
	precision  int
	contextIn  uint
	contextOut uint
	mode       string
}

func newSession() *session {
	s := &session{
		alphabet:   numsys.DefaultAlphabet64,
		baseIn:     10,
		baseOut:    30,
		precision:  11,
		contextIn:  64,
		contextOut: 64,
		mode:       "tool",
	}
	s.nsIn, _ = numsys.New(s.baseIn, s.alphabet, true)
	s.nsOut, _ = numsys.New(s.baseOut, s.alphabet, true)

	return s
}

func main() {
	baseIn := flag.Int("base-in", 10, "initial input base")
	baseOut := flag.Int("base-out", 30, "initial output base")
	precision := flag.Int("precision", 11, "initial output precision")
	flag.Parse()

	s := newSession()
	if err := s.setBase("in", *baseIn); err != nil {
		fmt.Fprintln(os.Stderr, "numrepl:", err)
		os.Exit(1)
	}
	if err := s.setBase("out", *baseOut); err != nil {
		fmt.Fprintln(os.Stderr, "numrepl:", err)
		os.Exit(1)
	}
	if *precision < 1 {
		fmt.Fprintln(os.Stderr, "numrepl: precision must be at least 1")
		os.Exit(1)
	}
	s.precision = *precision

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("base %d -> %d, precision %d, mode %s (\\h for help)\n",
		s.baseIn, s.baseOut, s.precision, s.mode)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, `\`) {
			if quit := s.command(line); quit {
				break
			}

			continue
		}

		s.evaluate(line)
	}
}

// command dispatches one backslash command, reporting true for \q.
func (s *session) command(line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case `\q`:
		return true
	case `\h`:
		fmt.Println(help)
	case `\base`:
		if len(fields) != 3 {
			fmt.Println(`usage: \base in|out B`)

			break
		}

		b, err := strconv.Atoi(fields[2])
		if err != nil {
			fmt.Println("bad base:", fields[2])

			break
		}

		if err := s.setBase(fields[1], b); err != nil {
			fmt.Println(err)
		}
	case `\precision`:
		if len(fields) != 2 {
			fmt.Println(`usage: \precision K`)

			break
		}

		k, err := strconv.Atoi(fields[1])
		if err != nil || k < 1 {
			fmt.Println("bad precision:", fields[1])

			break
		}

		s.precision = k
	case `\context`:
		if len(fields) != 3 {
			fmt.Println(`usage: \context in|out BITS`)

			break
		}

		bits, err := strconv.Atoi(fields[2])
		if err != nil || (bits != 32 && bits != 64 && bits != 128) {
			fmt.Println("bad context:", fields[2])

			break
		}

		switch fields[1] {
		case "in":
			s.contextIn = uint(bits)
		case "out":
			s.contextOut = uint(bits)
		default:
			fmt.Println(`usage: \context in|out BITS`)
		}
	case `\in`:
		if len(fields) != 2 {
			fmt.Println(`usage: \in tool|double|float|raw|reshape`)

			break
		}

		switch fields[1] {
		case "tool", "double", "float", "raw", "reshape":
			s.mode = fields[1]
		default:
			fmt.Println("unknown mode:", fields[1])
		}
	case `\digits`:
		if len(fields) != 2 {
			fmt.Println(`usage: \digits ALPHABET`)

			break
		}

		prev := s.alphabet
		s.alphabet = fields[1]
		if err := s.setBase("in", s.baseIn); err != nil {
			s.alphabet = prev
			fmt.Println(err)

			break
		}
		if err := s.setBase("out", s.baseOut); err != nil {
			s.alphabet = prev
			_ = s.setBase("in", s.baseIn)
			fmt.Println(err)
		}
	default:
		fmt.Println("unknown command; \\h for help")
	}

	return false
}

func (s *session) setBase(which string, b int) error {
	ns, err := numsys.New(b, s.alphabet, true)
	if err != nil {
		return fmt.Errorf("base %d with %d-digit alphabet: %w", b, len(s.alphabet), err)
	}

	switch which {
	case "in":
		s.baseIn, s.nsIn = b, ns
	case "out":
		s.baseOut, s.nsOut = b, ns
	default:
		return fmt.Errorf("want in or out, got %q", which)
	}

	return nil
}

// evaluate round-trips one input line per the current mode and prints the
// result plus its raw bit pattern.
func (s *session) evaluate(line string) {
	if s.mode == "reshape" {
		out, err := numfmt.Reshape(line, s.nsIn, s.nsOut, s.precision)
		if err != nil {
			fmt.Println("error:", err)

			return
		}

		fmt.Println(out)

		return
	}

	value, err := s.inputValue(line)
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	fast, err := numfmt.Format(value, s.nsOut, s.precision)
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	precise, err := numfmt.Format(value, s.nsOut, s.precision,
		numfmt.WithBackend(numfmt.BackendPrecise),
		numfmt.WithWorkingPrecision(s.contextOut))
	if err != nil {
		fmt.Println("error:", err)

		return
	}

	fmt.Printf("fast:    %s\n", fast)
	if precise != fast {
		fmt.Printf("precise: %s\n", precise)
	}
	fmt.Printf("bits:    %016X\n", math.Float64bits(value))
}

// inputValue interprets line as a value under the current input mode.
func (s *session) inputValue(line string) (float64, error) {
	switch s.mode {
	case "tool":
		res, err := numfmt.Parse(line, s.nsIn,
			numfmt.WithWorkingPrecision(s.contextIn))
		if err != nil {
			return 0, err
		}

		return res.Value, nil
	case "double":
		return strconv.ParseFloat(line, 64)
	case "float":
		f, err := strconv.ParseFloat(line, 32)
		if err != nil {
			return 0, err
		}

		return float64(float32(f)), nil
	case "raw":
		bits, err := strconv.ParseUint(strings.TrimPrefix(line, "0x"), 16, 64)
		if err != nil {
			return 0, err
		}

		return math.Float64frombits(bits), nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s.mode)
	}
}
