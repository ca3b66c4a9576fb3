package fluence

// Param describes one formal parameter of a function/lambda: its name,
// whether it is passed by reference (§4.8), and whether it carries a
// default value. Grounded on the teacher's own parameter-description
// shape threaded through its compiler's call-site backpatching.
//
// An earlier pass of this emitter also carried a richer compile-time
// `Value` descriptor (tagged by kind: number/string/variable/temp/
// function/lambda/range/...) alongside raw register integers, mirroring
// the teacher's `Value` interface hierarchy in its own value.go. The
// final emitter settled on passing bare `int` registers and `*Symbol`
// pointers directly between parse productions instead — Fluence's
// three-address codegen never needs to re-inspect what an already-
// emitted register holds, so the extra descriptor added a parallel
// bookkeeping structure without a consumer. It was trimmed down to just
// this struct, which the real call-site/arity machinery in emitter.go
// and bytecode.go's FuncDesc/FunctionObject.ParamRefs still needs.
type Param struct {
	Name       string
	ByRef      bool
	HasDefault bool
}
