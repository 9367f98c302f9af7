package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestResolveLogPathExpandsRelative(t *testing.T) {
	rec := JobRecord{JobID: "35121055", JobName: "susy_nc_cpu"}
	got := resolveLogPath("slurm_output/%x_%j.out", "/work", rec)
	want := "/work/slurm_output/susy_nc_cpu_35121055.out"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveLogPathArrayTask(t *testing.T) {
	rec := JobRecord{JobID: "77_3", JobName: "sweep"}
	got := resolveLogPath("'out/%A_%a_%x.log'", "/w", rec)
	if want := "/w/out/77_3_sweep.log"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := resolveLogPath("/abs/%j.err", "/w", rec); got != "/abs/77_3.err" {
		t.Fatalf("absolute paths ignore the base dir, got %q", got)
	}
	if got := resolveLogPath("", "/w", rec); got != "" {
		t.Fatalf("empty value should stay empty, got %q", got)
	}
}

func TestParseSubmitLineDirectives(t *testing.T) {
	d := parseSubmitLineDirectives("sbatch -A acc --chdir=/work --output=slurm_output/%x_%j.out -e err.log -d afterok:1 job.sbatch")
	if d.chdir != "/work" {
		t.Fatalf("expected chdir directive, got %q", d.chdir)
	}
	if d.stdout != "slurm_output/%x_%j.out" {
		t.Fatalf("expected stdout directive, got %q", d.stdout)
	}
	if d.stderr != "err.log" {
		t.Fatalf("expected stderr directive, got %q", d.stderr)
	}

	d = parseSubmitLineDirectives("sbatch --open-mode=append --export=ALL run.sh")
	if d != (sbatchDirectives{}) {
		t.Fatalf("unrelated flags should not match, got %+v", d)
	}
}

func TestLogSearchDirs(t *testing.T) {
	rec := JobRecord{
		JobID:      "123",
		JobName:    "train",
		WorkDir:    "/work",
		SubmitLine: "sbatch -o logs/%x_%j.out --error=/scratch/err/%j.err -D /work/sub job.sh",
	}
	got := logSearchDirs(rec, "/archive")
	want := []string{"/work", "/work/sub", "/work/sub/logs", "/scratch/err", "/archive"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dirs = %v, want %v", got, want)
	}

	rec = JobRecord{JobID: "5", WorkDir: "Unknown", SubmitLine: "sbatch -o rel.out job.sh"}
	if got := logSearchDirs(rec, ""); len(got) != 0 {
		t.Fatalf("unknown workdir and relative paths give no dirs, got %v", got)
	}
}

func TestLogGlob(t *testing.T) {
	tests := map[string]string{
		"123":      "*123*",
		"55_7":     "*55*",
		"55[1-4]":  "*55*",
		"55_[1-4]": "*55_*",
	}
	for id, want := range tests {
		if got := logGlob(id); got != want {
			t.Errorf("logGlob(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestFindLogs(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"find":     "/work/b.out\n/work/a.out\n\n/work/a.out\n",
		"scontrol": "JobId=123 JobName=train\n   StdErr=/var/out/123.err\n   StdOut=/var/out/123.out\n",
	}}
	rec := JobRecord{JobID: "123", WorkDir: "/work", State: ClassifyState("RUNNING")}

	paths, err := FindLogs(context.Background(), runner, discardLogger(), rec, "")
	if err != nil {
		t.Fatalf("FindLogs: %v", err)
	}
	if want := []string{"/work/a.out", "/work/b.out"}; !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	calls := runner.callsTo("find")
	if len(calls) != 1 {
		t.Fatalf("expected one find call, got %d", len(calls))
	}
	wantArgs := []string{"/work", "/var/out", "-maxdepth", "2", "-type", "f", "-name", "*123*"}
	if !reflect.DeepEqual(calls[0].args, wantArgs) {
		t.Fatalf("find args = %v, want %v", calls[0].args, wantArgs)
	}

	// finished jobs are no longer known to slurmctld
	rec.State = ClassifyState("COMPLETED")
	if _, err := FindLogs(context.Background(), runner, discardLogger(), rec, ""); err != nil {
		t.Fatal(err)
	}
	if n := len(runner.callsTo("scontrol")); n != 1 {
		t.Fatalf("scontrol should only be asked about live jobs, got %d calls", n)
	}
}

func TestFindLogsNothingFound(t *testing.T) {
	rec := JobRecord{JobID: "9", WorkDir: "Unknown"}
	runner := &fakeRunner{}
	paths, err := FindLogs(context.Background(), runner, discardLogger(), rec, "")
	if err != nil || len(paths) != 0 {
		t.Fatalf("no search dirs = %v, %v", paths, err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("nothing to search should not run find, got %v", runner.calls)
	}

	rec.WorkDir = "/gone"
	runner = &fakeRunner{errs: map[string]error{
		"find": &CommandError{Command: "find /gone", Err: &exec.ExitError{}},
	}}
	paths, err = FindLogs(context.Background(), runner, discardLogger(), rec, "")
	if err != nil || len(paths) != 0 {
		t.Fatalf("find exiting non-zero is an empty result, got %v, %v", paths, err)
	}

	down := errors.New("connection refused")
	runner = &fakeRunner{errs: map[string]error{"find": down}}
	if _, err := FindLogs(context.Background(), runner, discardLogger(), rec, ""); !errors.Is(err, down) {
		t.Fatalf("runner failures propagate, got %v", err)
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"sacct":          "sacct",
		"--format=A,B":   "--format=A,B",
		"":               "''",
		"a b":            "'a b'",
		"*55*":           "'*55*'",
		"it's":           `'it'"'"'s'`,
		"/home/u/%j.out": "/home/u/%j.out",
	}
	for in, want := range tests {
		if got := shellQuote(in); got != want {
			t.Errorf("shellQuote(%q) = %q, want %q", in, got, want)
		}
	}

	argv := sshArgv("login1", []string{"find", "/a b", "-name", "*1*"})
	want := []string{"ssh", "-o", "BatchMode=yes", "login1", "find '/a b' -name '*1*'"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("sshArgv = %v, want %v", argv, want)
	}
}

func TestCommandRunnerFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "sacct.txt")
	if err := os.WriteFile(fixture, []byte("JobID|State\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r := &CommandRunner{Mode: ModeFixture, FixturePath: fixture, Logger: discardLogger()}

	out, err := r.Run(context.Background(), "sacct", "-P")
	if err != nil || out != "JobID|State\n" {
		t.Fatalf("fixture sacct = %q, %v", out, err)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte{0xff, 0xfe}, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	r.FixturePath = bad
	if _, err := r.Run(context.Background(), "sacct"); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("invalid UTF-8 = %v", err)
	}

	r.FixturePath = filepath.Join(dir, "missing.txt")
	var cerr *CommandError
	if _, err := r.Run(context.Background(), "sacct"); !errors.As(err, &cerr) {
		t.Fatalf("missing fixture = %v", err)
	}
}

func TestCommandRunnerLocal(t *testing.T) {
	r := &CommandRunner{Mode: ModeLocal, Timeout: 5 * time.Second, Logger: discardLogger()}
	ctx := context.Background()

	out, err := r.Run(ctx, "sh", "-c", "echo partial; exit 3")
	if err != nil || out != "partial\n" {
		t.Fatalf("non-zero exit with output = %q, %v", out, err)
	}

	_, err = r.Run(ctx, "sh", "-c", "echo oops >&2; exit 2")
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if !cerr.exited() || !strings.Contains(cerr.Stderr, "oops") {
		t.Fatalf("CommandError = %+v", cerr)
	}

	r.Timeout = 50 * time.Millisecond
	_, err = r.Run(ctx, "sleep", "5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout = %v", err)
	}
	if errors.As(err, &cerr) && cerr.exited() {
		t.Fatal("a timeout is not an exit status")
	}
}

func TestExpandHomePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := expandHomePath("~/logs"); got != filepath.Join(home, "logs") {
		t.Fatalf("expandHomePath(~/logs) = %q", got)
	}
	if got := expandHomePath("/abs"); got != "/abs" {
		t.Fatalf("expandHomePath(/abs) = %q", got)
	}
	if got := expandHomePath("  "); got != "" {
		t.Fatalf("expandHomePath(blank) = %q", got)
	}
}
