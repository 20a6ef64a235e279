// Package diff renders unified diffs between a module's output on disk and
// freshly generated output.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Unified returns the unified diff turning current into want. Both names
// appear in the ---/+++ headers. An empty string means the contents are
// equal.
func Unified(currentName, wantName, current, want string) (string, error) {
	if current == want {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(current),
		B:        splitLines(want),
		FromFile: currentName,
		ToFile:   wantName,
		Context:  DefaultContext,
	})
}

// Missing returns a diff creating want from nothing.
func Missing(wantName, want string) (string, error) {
	return Unified("/dev/null", wantName, "", want)
}

// splitLines splits s keeping line terminators, as difflib expects. A final
// line without a newline gets one so that it diffs cleanly against the
// same line followed by more content.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
