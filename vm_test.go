package fluence

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runScript compiles and runs `source` to completion with an in-memory
// output sink, returning everything `print` wrote.
func runScript(t *testing.T, source string) string {
	t.Helper()
	in := NewInterpreter()
	require.NoError(t, in.Compile(source))
	var out bytes.Buffer
	in.SetOutputSink(&out)
	require.NoError(t, in.RunUntilDone())
	return out.String()
}

func TestArithmeticAndPrint(t *testing.T) {
	tests := []struct {
		Name     string
		Source   string
		Expected string
	}{
		{
			Name:     "integer addition",
			Source:   `func Main() { print(1 + 2); }`,
			Expected: "3\n",
		},
		{
			Name:     "operator precedence",
			Source:   `func Main() { print(2 + 3 * 4); }`,
			Expected: "14\n",
		},
		{
			Name:     "power is right associative",
			Source:   `func Main() { print(2 ** 3 ** 2); }`,
			Expected: "512\n",
		},
		{
			Name:     "mixed int/double widens to double",
			Source:   `func Main() { print(1 + 2.5); }`,
			Expected: "3.5\n",
		},
		{
			Name:     "string concatenation via plus",
			Source:   `func Main() { print("a" + "b"); }`,
			Expected: "ab\n",
		},
		{
			Name:     "division by zero raises",
			Source:   `func Main() { try { print(1 / 0); } catch e { print("caught"); } }`,
			Expected: "caught\n",
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, runScript(t, test.Source))
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		Name     string
		Source   string
		Expected string
	}{
		{
			Name: "if/else",
			Source: `func Main() {
				x = 5;
				if x > 3 {
					print("big");
				} else {
					print("small");
				}
			}`,
			Expected: "big\n",
		},
		{
			Name: "while loop",
			Source: `func Main() {
				i = 0;
				while i < 3 {
					print(i);
					i = i + 1;
				}
			}`,
			Expected: "0\n1\n2\n",
		},
		{
			Name: "loop N times",
			Source: `func Main() {
				loop 3 times {
					print("x");
				}
			}`,
			Expected: "x\nx\nx\n",
		},
		{
			Name: "for-in over an inclusive range",
			Source: `func Main() {
				for i in 1..3 {
					print(i);
				}
			}`,
			Expected: "1\n2\n3\n",
		},
		{
			Name: "for-in over a list",
			Source: `func Main() {
				for x in [10, 20, 30] {
					print(x);
				}
			}`,
			Expected: "10\n20\n30\n",
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, runScript(t, test.Source))
		})
	}
}

func TestFunctionsAndRecursion(t *testing.T) {
	tests := []struct {
		Name     string
		Source   string
		Expected string
	}{
		{
			Name: "plain call and return",
			Source: `func add(a, b) { return a + b; }
			func Main() { print(add(2, 3)); }`,
			Expected: "5\n",
		},
		{
			Name: "recursive function",
			Source: `func fact(n) {
				if n <= 1 { return 1; }
				return n * fact(n - 1);
			}
			func Main() { print(fact(5)); }`,
			Expected: "120\n",
		},
		{
			Name: "arity overload resolves to the matching declaration",
			Source: `func greet() { print("hi"); }
			func greet(name) { print(name); }
			func Main() { greet(); greet("Ada"); }`,
			Expected: "hi\nAda\n",
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, runScript(t, test.Source))
		})
	}
}

func TestExceptions(t *testing.T) {
	t.Run("throw and catch", func(t *testing.T) {
		src := `func Main() {
			try {
				throw "boom";
			} catch e {
				print(e);
			}
		}`
		assert.Equal(t, "boom\n", runScript(t, src))
	})

	t.Run("uncaught exception surfaces as a RuntimeError", func(t *testing.T) {
		in := NewInterpreter()
		require.NoError(t, in.Compile(`func Main() { throw "boom"; }`))
		var out bytes.Buffer
		in.SetOutputSink(&out)
		err := in.RunUntilDone()
		require.Error(t, err)
		var rt RuntimeError
		require.ErrorAs(t, err, &rt)
		assert.Equal(t, RTUncaughtException, rt.Kind)
	})

	t.Run("exception thrown across a call boundary unwinds to the catch", func(t *testing.T) {
		src := `func boom() { throw "deep"; }
		func Main() {
			try {
				boom();
			} catch e {
				print(e);
			}
		}`
		assert.Equal(t, "deep\n", runScript(t, src))
	})
}

func TestHostGlobals(t *testing.T) {
	in := NewInterpreter()
	require.NoError(t, in.Compile(`count = 0; func Main() { print(count); }`))
	require.NoError(t, in.SetGlobal("count", int64(42)))

	v, err := in.GetGlobal("count")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.I)

	var out bytes.Buffer
	in.SetOutputSink(&out)
	require.NoError(t, in.RunUntilDone())
	assert.Equal(t, "0\n", out.String())
}

func TestRunForCooperativeScheduling(t *testing.T) {
	in := NewInterpreter()
	require.NoError(t, in.Compile(`func Main() {
		i = 0;
		while i < 5 {
			print(i);
			i = i + 1;
		}
	}`))
	var out bytes.Buffer
	in.SetOutputSink(&out)

	for !in.Done() {
		_, err := in.RunFor(0)
		require.NoError(t, err)
		if in.Done() {
			break
		}
	}
	assert.Equal(t, "0\n1\n2\n3\n4\n", out.String())
}

func TestLibraryAllowDenyLists(t *testing.T) {
	t.Run("denylist blocks an intrinsic", func(t *testing.T) {
		in := NewInterpreter()
		require.NoError(t, in.Compile(`func Main() { print("hi"); }`))
		in.SetLibraryDenylist([]string{"print"})
		err := in.RunUntilDone()
		require.Error(t, err)
	})

	t.Run("allowlist permits only the named intrinsics", func(t *testing.T) {
		in := NewInterpreter()
		require.NoError(t, in.Compile(`func Main() { print(len([1,2,3])); }`))
		in.SetLibraryAllowlist([]string{"print", "len"})
		var out bytes.Buffer
		in.SetOutputSink(&out)
		require.NoError(t, in.RunUntilDone())
		assert.Equal(t, "3\n", out.String())
	})
}

func TestRefParameterMutatesCaller(t *testing.T) {
	// S7: a `ref` parameter's write must propagate back to the caller's
	// own named variable, not just a temp copy made for the call.
	src := `func bump(ref n) { n = n + 1; }
	func Main() {
		x = 5;
		bump(ref x);
		print(x);
	}`
	assert.Equal(t, "6\n", runScript(t, src))
}

func TestChainedAssignmentSegmentedByN(t *testing.T) {
	// S2: `<2|` shares its one evaluated source across the next 2
	// targets; the trailing `<|` shares its source across whatever
	// targets remain.
	in := NewInterpreter()
	require.NoError(t, in.Compile(`func Main() {
		a, b, c <2| input_int() <| input();
		print(a); print(b); print(c);
	}`))
	in.SetInputSource(strings.NewReader("7\nx\n"))
	var out bytes.Buffer
	in.SetOutputSink(&out)
	require.NoError(t, in.RunUntilDone())
	assert.Equal(t, "7\n7\nx\n", out.String())
}

func TestMatchLiteralPatternUsesEquality(t *testing.T) {
	// S5: a bare literal pattern must compare against the scrutinee,
	// not be taken on its own truthiness (a literal `1` is truthy
	// regardless of what's being matched).
	src := `func fib(n) {
		return match n { n < 0 -> 0; 1 -> 1; rest -> fib(n-1) + fib(n-2); };
	}
	func Main() { print(fib(7)); }`
	assert.Equal(t, "13\n", runScript(t, src))
}

func TestMatchLiteralPatternFailsWhenScrutineeDiffers(t *testing.T) {
	// Guards against the regression the equality fix targets: without
	// it, any nonzero literal pattern matches unconditionally.
	src := `func classify(n) {
		return match n { 1 -> "one"; rest -> "other"; };
	}
	func Main() { print(classify(2)); }`
	assert.Equal(t, "other\n", runScript(t, src))
}

func TestSolidVariableWriteOnceRaisesCannotAssignSolid(t *testing.T) {
	// S8: a second store to a `solid` slot must raise CannotAssignSolid.
	in := NewInterpreter()
	require.NoError(t, in.Compile(`func Main() { solid k = 10; k = 11; }`))
	err := in.RunUntilDone()
	require.Error(t, err)
	var solidErr CannotAssignSolidError
	assert.ErrorAs(t, err, &solidErr)
}

func TestSolidGlobalWriteOnceRaisesCannotAssignSolid(t *testing.T) {
	in := NewInterpreter()
	require.NoError(t, in.Compile(`solid k = 10; func Main() { k = 11; }`))
	err := in.RunUntilDone()
	require.Error(t, err)
	var solidErr CannotAssignSolidError
	assert.ErrorAs(t, err, &solidErr)
}

func TestSolidVariableFirstWriteSucceeds(t *testing.T) {
	src := `func Main() { solid k = 10; print(k); }`
	assert.Equal(t, "10\n", runScript(t, src))
}
