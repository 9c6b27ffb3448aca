package testutil

import "testing"

// Given, When, Then and And nest subtests so a ranking or claim scenario
// reads top to bottom in `go test -v` output.
func Given(t *testing.T, setup string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", setup, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", outcome, fn)
}

func And(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "And", outcome, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
