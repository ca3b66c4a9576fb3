package fluence

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Interpreter is the embeddable host surface (component §6): compile a
// source file once, then drive it to completion either all at once or
// in cooperative slices, with host-controlled sinks for the intrinsic
// surface and named globals settable from outside the script. Grounded
// on the teacher's own `api.go` (`GrammarFromBytes` → transformation
// pipeline → `Compile` → `Encode` → `Match`), generalized from
// "compile once, match many inputs" to "compile once, run to
// completion or in timed slices."
type Interpreter struct {
	prog *Program
	vm   *VM
	cfg  Config
}

// NewInterpreter builds an Interpreter with every documented default
// (§5, §6, §9).
func NewInterpreter() *Interpreter {
	return &Interpreter{cfg: DefaultConfig()}
}

// Compile lexes and emits `source` into bytecode and prepares a fresh
// VM to run it. It takes no optimize parameter, and neither the
// emitter nor the VM reads CfgOptimize: the inline cache (§4.7) is
// always active.
func (in *Interpreter) Compile(source string) error {
	prog, err := EmitProgram(source, "<source>")
	if err != nil {
		return err
	}
	in.prog = prog
	in.vm = NewVM(prog, in.cfg)
	return nil
}

// RunUntilDone runs the compiled program to completion (§4.6).
func (in *Interpreter) RunUntilDone() error {
	if in.vm == nil {
		return fmt.Errorf("fluence: Compile must succeed before RunUntilDone")
	}
	return in.vm.RunUntilDone()
}

// RunFor executes for at most `budget` wall-clock time, cooperatively
// yielding back to the host between instruction-count checks spaced
// `CfgTimeCheckInterval` apart (§4.6, §5). Returns true once the
// program has finished.
func (in *Interpreter) RunFor(budget time.Duration) (bool, error) {
	if in.vm == nil {
		return false, fmt.Errorf("fluence: Compile must succeed before RunFor")
	}
	deadline := time.Now().Add(budget)
	slice := in.cfg.GetInt(CfgTimeCheckInterval, 100000)
	for {
		done, err := in.vm.RunFor(slice)
		if done || err != nil {
			return done, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
	}
}

// Stop requests the running program suspend cooperatively at the next
// instruction boundary (§4.6, §5).
func (in *Interpreter) Stop() {
	if in.vm != nil {
		in.vm.Stop()
	}
}

// Done reports whether the compiled program has finished running.
func (in *Interpreter) Done() bool {
	return in.vm != nil && in.vm.Done()
}

// SetGlobal assigns a host value into a global script variable by
// name, coercing from the small set of types §6 allows across the host
// boundary (null, bool, i32, i64, f32, f64, string, char); anything
// else is rejected rather than silently boxed.
func (in *Interpreter) SetGlobal(name string, value interface{}) error {
	if in.prog == nil {
		return fmt.Errorf("fluence: Compile must succeed before SetGlobal")
	}
	idx, ok := in.globalIndex(name)
	if !ok {
		return rtErr(RTNameError, Span{}, "undefined global %q", name)
	}
	rv, err := hostValueToRV(value)
	if err != nil {
		return err
	}
	in.vm.Globals[idx] = rv
	return nil
}

// GetGlobal reads a global script variable's current value by name.
func (in *Interpreter) GetGlobal(name string) (RuntimeValue, error) {
	idx, ok := in.globalIndex(name)
	if !ok {
		return Nil, rtErr(RTNameError, Span{}, "undefined global %q", name)
	}
	return in.vm.Globals[idx], nil
}

func (in *Interpreter) globalIndex(name string) (int, bool) {
	sym, ok := in.prog.GlobalSyms[name]
	if !ok || !sym.IsGlobal || sym.Kind != SymVariable || sym.Reg < 0 {
		return 0, false
	}
	return sym.Reg, true
}

// HostChar distinguishes a Fluence `Char` from a plain `int32` across
// the host boundary — Go's `rune` is only an alias for `int32`, so
// SetGlobal needs its own named type to tell the two apart (§6 lists
// `char` as a distinct settable type from `i32`).
type HostChar rune

// hostValueToRV coerces a host Go value into the matching RuntimeValue,
// rejecting anything outside §6's supported set.
func hostValueToRV(value interface{}) (RuntimeValue, error) {
	switch v := value.(type) {
	case nil:
		return Nil, nil
	case bool:
		return BoolRV(v), nil
	case HostChar:
		return CharRV(rune(v)), nil
	case int32:
		return IntRV(int64(v)), nil
	case int64:
		return LongRV(v), nil
	case int:
		return IntRV(int64(v)), nil
	case float32:
		return FloatRV(float64(v)), nil
	case float64:
		return DoubleRV(v), nil
	case string:
		return StringRV(&StringObject{Data: v}), nil
	default:
		return Nil, fmt.Errorf("fluence: UnsupportedType: %T", value)
	}
}

// SetTrace enables or disables per-instruction execution tracing to
// the error sink (CfgTrace, §9). The VM reads the setting on every
// step, so it may be called before or after Compile.
func (in *Interpreter) SetTrace(on bool) {
	in.cfg.SetBool(CfgTrace, on)
}

// SetLibraryAllowlist restricts intrinsic/stdlib dispatch to exactly
// this set of names (§6); an allowlist always wins over any denylist.
func (in *Interpreter) SetLibraryAllowlist(names []string) {
	in.cfg.SetStringList(CfgLibraryAllowlist, names)
	if in.vm != nil {
		in.vm.Intrinsics.refreshLists(in.cfg)
	}
}

// SetLibraryDenylist denies exactly this set of intrinsic/stdlib names
// (§6), consulted only when no allowlist is set.
func (in *Interpreter) SetLibraryDenylist(names []string) {
	in.cfg.SetStringList(CfgLibraryDenylist, names)
	if in.vm != nil {
		in.vm.Intrinsics.refreshLists(in.cfg)
	}
}

// SetOutputSink redirects `print`'s output (§6).
func (in *Interpreter) SetOutputSink(w io.Writer) {
	if in.vm != nil {
		in.vm.Intrinsics.Output = w
	}
}

// SetErrorSink redirects where the VM writes its per-instruction trace
// lines when `CfgTrace` is on (§6). Uncaught errors are not written
// here; RunUntilDone and RunFor return them.
func (in *Interpreter) SetErrorSink(w io.Writer) {
	if in.vm != nil {
		in.vm.Intrinsics.Errors = w
	}
}

// SetInputSource redirects `input`/`input_int` (§6).
func (in *Interpreter) SetInputSource(r io.Reader) {
	if in.vm != nil {
		in.vm.Intrinsics.Input = bufio.NewReader(r)
	}
}
