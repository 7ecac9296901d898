package main

import (
	"os"
	"path/filepath"
	"testing"

	"floatingtemple/interpreter/toy"
)

func writeProgram(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.toy")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write program file: %v", err)
	}
	return path
}

func TestParseProgramFileIntArithmetic(t *testing.T) {
	path := writeProgram(t, "int 10\nadd\n5\n")
	prog, err := parseProgramFile(path)
	if err != nil {
		t.Fatalf("parseProgramFile failed: %v", err)
	}

	obj, ok := prog.root.(toy.IntObject)
	if !ok {
		t.Fatalf("got root object %T, want toy.IntObject", prog.root)
	}
	if obj.Value != 10 {
		t.Errorf("got root value %d, want 10", obj.Value)
	}
	if prog.method != "add" {
		t.Errorf("got method %q, want %q", prog.method, "add")
	}
	if len(prog.args) != 1 || prog.args[0].Int64Value != 5 {
		t.Errorf("got args %+v, want a single int64 argument 5", prog.args)
	}
}

func TestParseProgramFileSkipsBlankLinesAndComments(t *testing.T) {
	path := writeProgram(t, "# a comment\n\nstring hello\n\nlength\n")
	prog, err := parseProgramFile(path)
	if err != nil {
		t.Fatalf("parseProgramFile failed: %v", err)
	}
	if _, ok := prog.root.(toy.StringObject); !ok {
		t.Fatalf("got root object %T, want toy.StringObject", prog.root)
	}
	if prog.method != "length" {
		t.Errorf("got method %q, want %q", prog.method, "length")
	}
}

func TestParseProgramFileRequiresMethodLine(t *testing.T) {
	path := writeProgram(t, "int 0\n")
	if _, err := parseProgramFile(path); err == nil {
		t.Errorf("expected an error for a program file missing a method line")
	}
}

func TestParseProgramFileRejectsUnknownKind(t *testing.T) {
	path := writeProgram(t, "tuple 1 2\nget\n")
	if _, err := parseProgramFile(path); err == nil {
		t.Errorf("expected an error for an unknown root object kind")
	}
}

func TestParseProgramFileRejectsNonIntArgument(t *testing.T) {
	path := writeProgram(t, "int 0\nadd\nnotanumber\n")
	if _, err := parseProgramFile(path); err == nil {
		t.Errorf("expected an error for a non-int64 argument")
	}
}

func TestParseRootObjectVariableAndList(t *testing.T) {
	v, err := parseRootObject("variable")
	if err != nil {
		t.Fatalf("parseRootObject(variable) failed: %v", err)
	}
	if _, ok := v.(*toy.VariableObject); !ok {
		t.Errorf("got %T, want *toy.VariableObject", v)
	}

	l, err := parseRootObject("list")
	if err != nil {
		t.Fatalf("parseRootObject(list) failed: %v", err)
	}
	if _, ok := l.(*toy.ListObject); !ok {
		t.Errorf("got %T, want *toy.ListObject", l)
	}
}
