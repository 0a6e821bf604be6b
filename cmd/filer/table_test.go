package main

import (
	"strings"
	"testing"
)

func TestRenderTableUppercasesHeadersOnly(t *testing.T) {
	out := renderTable([]string{"Run", "Incoming"}, [][]string{{"abcd1234", "3"}, {"short"}}, 1)

	requireContains(t, out, "INCOMING")
	requireContains(t, out, "abcd1234")
	requireContains(t, out, "short")
	if strings.Contains(out, "Incoming") {
		t.Fatalf("expected header to be uppercased:\n%s", out)
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
