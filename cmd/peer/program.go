package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"floatingtemple/internal/bridge"
	"floatingtemple/interpreter/toy"
)

// program is what a --program file names: a root object to create and
// one top-level method to invoke on it, the minimum needed to exercise
// RunProgram end to end.
//
// This is deliberately not the original toy_lang scripting language
// (run_toy_lang_program.cc's Lexer/Parser/Expression/ProgramObject
// pipeline) — porting a full recursive-descent parser and expression
// evaluator was judged out of proportion to this repo's scope (see
// DESIGN.md); a program file here is a handful of lines naming a root
// object kind, a method, and its int64 arguments.
type program struct {
	root   bridge.LocalObject
	method string
	args   []bridge.Value
}

// parseProgramFile reads the line-based format:
//
//	<kind> [literal]
//	<method>
//	[arg]...
//
// kind is one of none|bool|int|string|variable|list; literal seeds the
// root object's initial value where applicable (bool/int/string). Every
// remaining line is parsed as an int64 into program.args; main runs
// method with no parameters, so these values are not passed to it.
func parseProgramFile(path string) (*program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("program: expected at least a root object line and a method line")
	}

	root, err := parseRootObject(lines[0])
	if err != nil {
		return nil, err
	}

	p := &program{root: root, method: lines[1]}
	for _, line := range lines[2:] {
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("program: argument %q is not an int64: %w", line, err)
		}
		p.args = append(p.args, bridge.Int64(v, 0))
	}
	return p, nil
}

func parseRootObject(line string) (bridge.LocalObject, error) {
	fields := strings.Fields(line)
	kind := fields[0]
	literal := ""
	if len(fields) > 1 {
		literal = fields[1]
	}

	switch kind {
	case "none":
		return toy.NoneObject{}, nil
	case "bool":
		return toy.BoolObject{Value: literal == "true"}, nil
	case "int":
		v, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("program: invalid int literal %q: %w", literal, err)
		}
		return toy.IntObject{Value: v}, nil
	case "string":
		return toy.StringObject{Value: literal}, nil
	case "variable":
		return toy.NewVariable(), nil
	case "list":
		return toy.NewList(), nil
	default:
		return nil, fmt.Errorf("program: unknown root object kind %q", kind)
	}
}
