package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/its-hmny/schemec/pkg/analyzer"
	"github.com/its-hmny/schemec/pkg/ast"
	"github.com/its-hmny/schemec/pkg/codegen"
	"github.com/its-hmny/schemec/pkg/reader"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
schemec compiles a single Scheme source file through the reader, tag
parser, semantic analyzer and code generator into an x86-64 NASM assembly
file. It does not run an assembler or linker unless --assemble is given.
`, "\n", " ")

var Schemec = cli.New(Description).
	WithArg(cli.NewArg("input", "The Scheme source file to compile")).
	WithOption(cli.NewOption("output", "Output base path (defaults to the input path without its extension)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("assemble", "Additionally invoke nasm and ld to produce a runnable binary").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}
	input := args[0]

	base, ok := options["output"]
	if !ok {
		ext := filepath.Ext(input)
		base = strings.TrimSuffix(input, ext)
	}

	asmPath := fmt.Sprintf("%s.asm", base)
	if err := Compile(input, asmPath); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	if _, enabled := options["assemble"]; enabled {
		if err := Assemble(asmPath, base); err != nil {
			fmt.Printf("ERROR: Unable to complete 'assemble' pass: %s\n", err)
			return -1
		}
	}

	return 0
}

// Compile runs the full reader -> tag-parser -> analyzer -> codegen
// pipeline over the source file at input and writes the generated
// assembly text to asmPath.
func Compile(input, asmPath string) error {
	content, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("unable to open input file: %w", err)
	}

	parser := reader.NewParser(bytes.NewReader(content))
	forms, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("unable to complete 'read' pass: %w", err)
	}

	program, err := ast.ParseProgram(forms)
	if err != nil {
		return fmt.Errorf("unable to complete 'parse' pass: %w", err)
	}

	if err := analyzer.Run(program); err != nil {
		return fmt.Errorf("unable to complete 'analyze' pass: %w", err)
	}

	generator := codegen.NewCodeGenerator(program)
	assembly, err := generator.Generate()
	if err != nil {
		return fmt.Errorf("unable to complete 'codegen' pass: %w", err)
	}

	output, err := os.Create(asmPath)
	if err != nil {
		return fmt.Errorf("unable to open output file: %w", err)
	}
	defer output.Close()

	if _, err := output.WriteString(assembly); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	return nil
}

// Assemble shells out to nasm and ld to turn the generated assembly into a
// runnable binary; failures here are reported as-is.
func Assemble(asmPath, base string) error {
	objPath := fmt.Sprintf("%s.o", base)

	nasm := exec.Command("nasm", "-f", "elf64", "-o", objPath, asmPath)
	nasm.Stdout, nasm.Stderr = os.Stdout, os.Stderr
	if err := nasm.Run(); err != nil {
		return fmt.Errorf("nasm failed: %w", err)
	}

	ld := exec.Command("ld", "-o", base, objPath)
	ld.Stdout, ld.Stderr = os.Stdout, os.Stderr
	if err := ld.Run(); err != nil {
		return fmt.Errorf("ld failed: %w", err)
	}
	return nil
}

func main() { os.Exit(Schemec.Run(os.Args, os.Stdout)) }
