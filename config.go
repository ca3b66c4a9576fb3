package fluence

import "fmt"

// cfgVal is a typed configuration cell: exactly one of its fields is
// meaningful, selected by kind. Grounded on the teacher's own
// config.go (a typed `cfgVal` bag keyed by string, used to thread
// grammar-compiler options through without a dozen constructor
// parameters), generalized here to carry compiler/VM tuning knobs
// (§5, §6, §9) instead of PEG-compilation flags.
type cfgKind int

const (
	cfgBool cfgKind = iota
	cfgInt
	cfgString
	cfgStringList
)

type cfgVal struct {
	kind cfgKind
	b    bool
	i    int
	s    string
	list []string
}

// Config is a typed option bag for an Interpreter. Unset keys fall back
// to the defaults documented on each accessor.
type Config map[string]*cfgVal

func NewConfig() Config { return make(Config) }

func (c Config) SetBool(key string, v bool) Config {
	c[key] = &cfgVal{kind: cfgBool, b: v}
	return c
}

func (c Config) SetInt(key string, v int) Config {
	c[key] = &cfgVal{kind: cfgInt, i: v}
	return c
}

func (c Config) SetString(key string, v string) Config {
	c[key] = &cfgVal{kind: cfgString, s: v}
	return c
}

func (c Config) SetStringList(key string, v []string) Config {
	c[key] = &cfgVal{kind: cfgStringList, list: append([]string(nil), v...)}
	return c
}

func (c Config) GetBool(key string, def bool) bool {
	v, ok := c[key]
	if !ok || v.kind != cfgBool {
		return def
	}
	return v.b
}

func (c Config) GetInt(key string, def int) int {
	v, ok := c[key]
	if !ok || v.kind != cfgInt {
		return def
	}
	return v.i
}

func (c Config) GetString(key string, def string) string {
	v, ok := c[key]
	if !ok || v.kind != cfgString {
		return def
	}
	return v.s
}

func (c Config) GetStringList(key string) []string {
	v, ok := c[key]
	if !ok || v.kind != cfgStringList {
		return nil
	}
	return v.list
}

func (c Config) String() string {
	return fmt.Sprintf("Config(%d keys)", len(c))
}

// Well-known config keys (§5, §6, §9).
const (
	// CfgOptimize is the optimizer switch (§4.7). Default: true.
	// Nothing in the emitter or the VM reads it; the inline cache is
	// always active.
	CfgOptimize = "compiler.optimize"

	// CfgTimeCheckInterval is how many instructions the VM dispatch
	// loop executes between checks of the cooperative time budget
	// passed to RunFor (§4.6, §5). Default: 100000.
	CfgTimeCheckInterval = "vm.time_check_interval"

	// CfgTrace enables per-instruction execution tracing to the
	// configured error sink, one line per instruction giving its
	// address and opcode name. Default: false.
	CfgTrace = "vm.trace"

	// CfgMaxCallDepth bounds recursion before the VM raises
	// RTStackOverflow (§7).
	// Default: 4096.
	CfgMaxCallDepth = "vm.max_call_depth"

	// CfgLibraryAllowlist / CfgLibraryDenylist gate which intrinsic/
	// stdlib names a running program may call (§6). An allowlist, if
	// set, is checked first; a name not on it is denied regardless of
	// the denylist. If no allowlist is set, the denylist alone gates.
	CfgLibraryAllowlist = "security.allowlist"
	CfgLibraryDenylist  = "security.denylist"
)

// DefaultConfig returns a Config pre-populated with every documented
// default, so callers can start from it and override just the keys
// they care about.
func DefaultConfig() Config {
	return NewConfig().
		SetBool(CfgOptimize, true).
		SetInt(CfgTimeCheckInterval, 100000).
		SetBool(CfgTrace, false).
		SetInt(CfgMaxCallDepth, 4096)
}
