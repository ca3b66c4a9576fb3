package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	fluence "github.com/fluence-lang/fluence"
	"github.com/fluence-lang/fluence/ascii"
)

type args struct {
	sourcePath *string
	disasmOnly *bool
	trace      *bool
}

func readArgs() *args {
	a := &args{
		sourcePath: flag.String("source", "", "Path to the Fluence source file"),
		disasmOnly: flag.Bool("disasm", false, "Print the compiled bytecode instead of running it"),
		trace:      flag.Bool("trace", false, "Enable per-instruction execution tracing"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()
	if *a.sourcePath == "" {
		log.Fatal("Source file not informed")
	}

	src, err := os.ReadFile(*a.sourcePath)
	if err != nil {
		log.Fatalf("Can't open source file: %s", err.Error())
	}

	interp := fluence.NewInterpreter()
	interp.SetTrace(*a.trace)
	if err := interp.Compile(string(src)); err != nil {
		log.Fatalf("Compile error: %s", err.Error())
	}

	if *a.disasmOnly {
		prog, derr := fluence.EmitProgram(string(src), *a.sourcePath)
		if derr != nil {
			log.Fatalf("Compile error: %s", derr.Error())
		}
		fmt.Print(fluence.Disassemble(prog, ascii.DefaultTheme))
		return
	}

	interp.SetOutputSink(os.Stdout)
	interp.SetErrorSink(os.Stderr)
	interp.SetInputSource(os.Stdin)

	if err := interp.RunUntilDone(); err != nil {
		fmt.Fprintln(os.Stderr, "Runtime Error: "+err.Error())
		os.Exit(1)
	}
}
