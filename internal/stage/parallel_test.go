package stage

import (
	"context"
	"sort"
	"testing"
)

func TestRunIndexedParallel_AllIndices(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		got := runIndexedParallel(50, workers, func(i int) int { return i * 2 })
		if len(got) != 50 {
			t.Fatalf("workers=%d: got %d results", workers, len(got))
		}
		sort.Ints(got)
		for i, v := range got {
			if v != i*2 {
				t.Fatalf("workers=%d: result %d = %d", workers, i, v)
			}
		}
	}
	if got := runIndexedParallel(0, 4, func(i int) int { return i }); len(got) != 0 {
		t.Fatalf("expected no results, got %v", got)
	}
}

func TestSortEnvelopeErrors(t *testing.T) {
	env := Envelope{Errors: []Error{
		{Stage: "b", Locator: "x", Message: "m"},
		{Stage: "a", Locator: "y", Message: "m"},
		{Stage: "a", Locator: "x", Message: "z"},
		{Stage: "a", Locator: "x", Message: "a"},
	}}
	SortEnvelopeErrors(&env)
	want := []Error{
		{Stage: "a", Locator: "x", Message: "a"},
		{Stage: "a", Locator: "x", Message: "z"},
		{Stage: "a", Locator: "y", Message: "m"},
		{Stage: "b", Locator: "x", Message: "m"},
	}
	for i := range want {
		if env.Errors[i] != want[i] {
			t.Fatalf("index %d: got %+v want %+v", i, env.Errors[i], want[i])
		}
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	if got := sanitizeErrorMessage("  line one\n\tline two  "); got != "line one line two" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeErrorMessage(" \n "); got != "error" {
		t.Fatalf("got %q", got)
	}
}

func TestRun_UnknownStage(t *testing.T) {
	_, err := Run(context.Background(), "nope", Envelope{}, Deps{})
	if err == nil || err.Error() != "unknown stage: nope" {
		t.Fatalf("got %v", err)
	}
	if _, ok := err.(ErrUnknown); !ok {
		t.Fatalf("expected ErrUnknown, got %T", err)
	}
}

func TestComparePipeline_Registered(t *testing.T) {
	known := map[string]bool{}
	for _, n := range Names() {
		known[n] = true
	}
	for _, n := range ComparePipeline {
		if !known[n] {
			t.Fatalf("stage %q is not registered", n)
		}
	}
}
