package fluence

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// IntrinsicSet is the minimal late-bound standard library the VM
// dispatches `OpCallNamed` to once no user-declared function of that
// name/arity exists (§6). It is deliberately small — `print`, `input`,
// `input_int`, `len`, `type_of` — the smallest surface that makes §8's
// scenarios (which call `input_int()`/`input()`) runnable end to end
// without pretending to be a real standard library. Grounded on the
// teacher's own small built-in surface wired through host-provided
// io.Writer/io.Reader sinks rather than bare os.Stdin/os.Stdout, so a
// host embedding the interpreter can redirect them.
type IntrinsicSet struct {
	Output io.Writer
	Errors io.Writer
	Input  *bufio.Reader

	allow map[string]bool
	deny  map[string]bool
}

func NewIntrinsicSet(cfg Config) *IntrinsicSet {
	s := &IntrinsicSet{
		Output: os.Stdout,
		Errors: os.Stderr,
		Input:  bufio.NewReader(os.Stdin),
	}
	s.refreshLists(cfg)
	return s
}

func (s *IntrinsicSet) refreshLists(cfg Config) {
	s.allow = toSet(cfg.GetStringList(CfgLibraryAllowlist))
	s.deny = toSet(cfg.GetStringList(CfgLibraryDenylist))
}

func toSet(names []string) map[string]bool {
	if names == nil {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var intrinsicNames = map[string]bool{
	"print": true, "input": true, "input_int": true, "len": true, "type_of": true,
}

// Allowed gates a by-name call against the configured allowlist/
// denylist: an allowlist, if set, is checked first and anything absent
// from it is denied regardless of the denylist (§6).
func (s *IntrinsicSet) Allowed(name string, cfg Config) bool {
	if !intrinsicNames[name] {
		return false
	}
	if s.allow != nil {
		return s.allow[name]
	}
	if s.deny != nil && s.deny[name] {
		return false
	}
	return true
}

// Call dispatches one of the five intrinsics by name.
func (s *IntrinsicSet) Call(name string, args []RuntimeValue, sp Span) (RuntimeValue, error) {
	switch name {
	case "print":
		var parts []string
		for _, a := range args {
			parts = append(parts, a.String())
		}
		io.WriteString(s.Output, strings.Join(parts, " ")+"\n")
		return Nil, nil
	case "input":
		line, _ := s.Input.ReadString('\n')
		return StringRV(&StringObject{Data: strings.TrimRight(line, "\r\n")}), nil
	case "input_int":
		line, _ := s.Input.ReadString('\n')
		n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			return Nil, rtErr(RTTypeError, sp, "input_int: %q is not an integer", strings.TrimSpace(line))
		}
		return IntRV(n), nil
	case "len":
		if len(args) != 1 {
			return Nil, rtErr(RTArityError, sp, "len expects 1 argument, got %d", len(args))
		}
		switch args[0].Tag {
		case RVList:
			return IntRV(int64(len(args[0].Obj.(*ListObject).Elems))), nil
		case RVString:
			return IntRV(int64(len([]rune(args[0].Obj.(*StringObject).Data)))), nil
		default:
			return Nil, rtErr(RTTypeError, sp, "%s has no length", args[0].TypeName())
		}
	case "type_of":
		if len(args) != 1 {
			return Nil, rtErr(RTArityError, sp, "type_of expects 1 argument, got %d", len(args))
		}
		return StringRV(&StringObject{Data: args[0].TypeName()}), nil
	default:
		return Nil, rtErr(RTNameError, sp, "undefined function %q", name)
	}
}
