// Command cpurunner drives a headless Machine against a ROM until the
// serial tap reports a result or a step/time budget is exhausted. It is
// the test-harness entrypoint Blargg-style cpu_instrs ROMs are run through.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/horizon-arcade/dmgcore/internal/cart"
	"github.com/horizon-arcade/dmgcore/internal/emu"
)

var failBanner = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)

type options struct {
	rom     string
	boot    string
	steps   int
	trace   bool
	until   string
	auto    bool
	timeout time.Duration
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.rom, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&o.boot, "bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	flag.IntVar(&o.steps, "steps", 5_000_000, "max CPU steps to run")
	flag.BoolVar(&o.trace, "trace", false, "dump PC/opcode/register state per step to stderr")
	flag.StringVar(&o.until, "until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	flag.BoolVar(&o.auto, "auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit 0/1")
	flag.DurationVar(&o.timeout, "timeout", 0, "optional wall-clock limit (e.g. 30s, 2m); 0 disables")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()
	if o.rom == "" {
		log.Fatal("-rom is required")
	}

	m := emu.New(emu.Config{})
	if o.boot != "" {
		boot, err := os.ReadFile(o.boot)
		if err != nil {
			log.Fatalf("read bootrom: %v", err)
		}
		m.SetBootROM(boot)
	}
	if err := m.LoadCartridge(o.rom); err != nil {
		log.Fatalf("load cart: %v", err)
	}
	if rom, err := os.ReadFile(o.rom); err == nil {
		if h, err := cart.ParseHeader(rom); err == nil {
			log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.TypeName(), h.ROMBanks, h.RAMSize)
		}
	}

	os.Exit(run(m, o))
}

// run steps the machine until a serial verdict, the step budget, or the
// deadline ends the session, echoing new serial bytes to stdout as they
// arrive. The return value is the process exit code.
func run(m *emu.Machine, o options) int {
	start := time.Now()
	var deadline time.Time
	if o.timeout > 0 {
		deadline = start.Add(o.timeout)
	}
	report := func(step, cycles int) {
		fmt.Printf("Done: steps=%d cycles~=%d elapsed=%s\n",
			step, cycles, time.Since(start).Truncate(time.Millisecond))
	}

	seen, cycles := 0, 0
	for i := 0; i < o.steps; i++ {
		if o.trace {
			traceStep(m, i)
		}
		n, err := m.Step()
		if err != nil {
			log.Fatalf("fatal at step %d: %v", i, err)
		}
		cycles += n

		out := m.SerialLog()
		if len(out) > seen {
			fmt.Print(out[seen:])
			seen = len(out)
		}

		switch {
		case o.auto:
			if strings.Contains(strings.ToLower(out), "passed") {
				fmt.Println("\nDetected PASS in serial output.")
				report(i+1, cycles)
				return 0
			}
			if banner := failBanner.FindString(out); banner != "" {
				fmt.Printf("\nDetected %s in serial output.\n", banner)
				report(i+1, cycles)
				return 1
			}
		case o.until != "":
			if strings.Contains(strings.ToLower(out), strings.ToLower(o.until)) {
				fmt.Printf("\nDetected %q in serial output.\n", o.until)
				report(i+1, cycles)
				return 0
			}
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
			return 2
		}
	}

	report(o.steps, cycles)
	if out := m.SerialLog(); out != "" {
		fmt.Printf("serial output:\n%s\n", out)
	}
	return 0
}

func traceStep(m *emu.Machine, step int) {
	r := m.Registers()
	pc := r.PC()
	fmt.Fprintf(os.Stderr, "%08d PC=%04X op=%02X AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X\n",
		step, pc, m.MMU().ReadByte(pc), r.AF(), r.BC(), r.DE(), r.HL(), r.SP)
}
