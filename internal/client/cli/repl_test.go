package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	calls []string
	args  []string
}

func (f *fakeExec) Upload(ctx context.Context, path, parentDirID string) error {
	f.calls = append(f.calls, "upload")
	f.args = append(f.args, path, parentDirID)
	return nil
}
func (f *fakeExec) List(ctx context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Pause(ctx context.Context, id string) error {
	f.calls = append(f.calls, "pause")
	f.args = append(f.args, id)
	return nil
}
func (f *fakeExec) Resume(ctx context.Context, id string) error {
	f.calls = append(f.calls, "resume")
	f.args = append(f.args, id)
	return nil
}
func (f *fakeExec) Cancel(ctx context.Context, id string) error {
	f.calls = append(f.calls, "cancel")
	f.args = append(f.args, id)
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error { f.calls = append(f.calls, "sync"); return nil }

func TestRunREPL_CommandsAndArgs(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"upload /tmp/report.pdf dir42",
		"list",
		"pause f1",
		"resume f1",
		"cancel f2",
		"sync",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	want := []string{"upload", "list", "pause", "resume", "cancel", "sync"}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, want)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Fatalf("calls order mismatch: got %v, want %v", exec.calls, want)
		}
	}

	wantArgs := []string{"/tmp/report.pdf", "dir42", "f1", "f1", "f2"}
	for i := range wantArgs {
		if exec.args[i] != wantArgs[i] {
			t.Fatalf("args mismatch: got %v, want %v", exec.args, wantArgs)
		}
	}
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("upload\npause\nresume\ncancel\nquit\n")
	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
