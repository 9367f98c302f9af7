package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type ExecMode string

const (
	ModeLocal   ExecMode = "local"
	ModeFixture ExecMode = "fixture"
	ModeSSH     ExecMode = "ssh"
)

var ErrInvalidUTF8 = errors.New("command output is not valid UTF-8")

// CommandError is a command that could not be started, timed out, or
// exited non-zero without producing output.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ", stderr: " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// exited reports whether the process ran and returned a non-zero status,
// as opposed to failing to start or timing out.
func (e *CommandError) exited() bool {
	var exitErr *exec.ExitError
	return errors.As(e.Err, &exitErr)
}

// CommandRunner runs commands locally, over ssh, or, for sacct only, from a
// canned fixture file.
type CommandRunner struct {
	Mode        ExecMode
	SSHHost     string
	FixturePath string
	Timeout     time.Duration
	Logger      *slog.Logger
}

func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Mode == ModeFixture && name == "sacct" {
		data, err := os.ReadFile(r.FixturePath)
		if err != nil {
			return "", &CommandError{Command: "read fixture " + r.FixturePath, Err: err}
		}
		return checkUTF8(data)
	}

	argv := append([]string{name}, args...)
	if r.Mode == ModeSSH {
		argv = sshArgv(r.SSHHost, argv)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	command := strings.Join(argv, " ")
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s: %w", r.Timeout, ctx.Err())
	}
	if err != nil {
		cerr := &CommandError{Command: command, Stderr: stderr.String(), Err: err}
		if !cerr.exited() || stdout.Len() == 0 {
			r.Logger.Error("unable to execute command", "cmd", command, "output", stderr.String(), "err", err)
			return "", cerr
		}
		// sacct and find exit non-zero for partial failures but still
		// print usable results.
		r.Logger.Warn("command exited with error", "cmd", command, "stderr", stderr.String(), "err", err)
	}
	r.Logger.Debug("command finished", "cmd", command, "mode", r.Mode, "duration", time.Since(start), "bytes", stdout.Len())
	return checkUTF8(stdout.Bytes())
}

func checkUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

// sshArgv wraps a command for the remote login shell, which re-splits and
// glob-expands its arguments.
func sshArgv(host string, argv []string) []string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return []string{"ssh", "-o", "BatchMode=yes", host, strings.Join(quoted, " ")}
}

var shellSafeRe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

func shellQuote(s string) string {
	if s != "" && shellSafeRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func CurrentUser() string {
	u, err := user.Current()
	if err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// logGlob is the file name pattern for a job's logs. Array tasks and
// collapsed ranges match on the array's base id.
func logGlob(jobID string) string {
	id := jobID
	if i := strings.IndexByte(id, '['); i > 0 {
		id = id[:i]
	} else if base, _, ok := splitArrayTask(id); ok {
		id = base
	}
	return "*" + id + "*"
}

// FindLogs lists the log files of a job. It searches the job's working
// directory, the directories named by -o/-e/-D on its submit line, the
// directories scontrol reports for jobs still known to slurmctld, and the
// archive directory. No match is not an error.
func FindLogs(ctx context.Context, runner Runner, logger *slog.Logger, rec JobRecord, archiveDir string) ([]string, error) {
	dirs := logSearchDirs(rec, archiveDir)
	if rec.State.Kind == StateRunning || rec.State.Kind == StatePending {
		dirs = append(dirs, scontrolLogDirs(ctx, runner, rec.JobID)...)
	}
	dirs = uniqueStrings(dirs)
	if len(dirs) == 0 {
		return nil, nil
	}

	args := append(append([]string{}, dirs...), "-maxdepth", "2", "-type", "f", "-name", logGlob(rec.JobID))
	out, err := runner.Run(ctx, "find", args...)
	if err != nil {
		var cerr *CommandError
		if errors.As(err, &cerr) && cerr.exited() {
			// Missing directories make find fail with nothing to report.
			logger.Debug("log search found nothing", "job", rec.JobID, "dirs", dirs, "err", err)
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	paths = uniqueStrings(paths)
	sort.Strings(paths)
	logger.Debug("log search", "job", rec.JobID, "dirs", dirs, "found", len(paths))
	return paths, nil
}

// ReadLog returns the contents of a log file through the runner, so remote
// files are read on the remote host.
func ReadLog(ctx context.Context, runner Runner, path string) (string, error) {
	return runner.Run(ctx, "cat", path)
}

func logSearchDirs(rec JobRecord, archiveDir string) []string {
	var dirs []string
	workDir := strings.TrimSpace(rec.WorkDir)
	if workDir != "" && workDir != "Unknown" {
		dirs = append(dirs, workDir)
	}

	directives := parseSubmitLineDirectives(rec.SubmitLine)
	baseDir := workDir
	if directives.chdir != "" {
		baseDir = resolveLogPath(directives.chdir, workDir, rec)
		if strings.HasPrefix(baseDir, "/") {
			dirs = append(dirs, baseDir)
		}
	}
	for _, value := range []string{directives.stdout, directives.stderr} {
		if p := resolveLogPath(value, baseDir, rec); strings.HasPrefix(p, "/") {
			dirs = append(dirs, path.Dir(p))
		}
	}

	if archiveDir = expandHomePath(archiveDir); archiveDir != "" {
		dirs = append(dirs, archiveDir)
	}
	return dirs
}

var (
	stdoutPathRe = regexp.MustCompile(`StdOut=(\S+)`)
	stderrPathRe = regexp.MustCompile(`StdErr=(\S+)`)
)

// scontrolLogDirs asks slurmctld where a live job writes its output.
func scontrolLogDirs(ctx context.Context, runner Runner, jobID string) []string {
	out, err := runner.Run(ctx, "scontrol", "show", "job", jobID)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, re := range []*regexp.Regexp{stdoutPathRe, stderrPathRe} {
		if m := re.FindStringSubmatch(out); len(m) > 1 && strings.HasPrefix(m[1], "/") {
			dirs = append(dirs, path.Dir(m[1]))
		}
	}
	return dirs
}

var (
	outputFlagRe = regexp.MustCompile(`(?:^|\s)(-o|--output)\s*=?\s*(\S+)`)
	errorFlagRe  = regexp.MustCompile(`(?:^|\s)(-e|--error)\s*=?\s*(\S+)`)
	chdirFlagRe  = regexp.MustCompile(`(?:^|\s)(-D|--chdir)\s*=?\s*(\S+)`)
)

type sbatchDirectives struct {
	stdout string
	stderr string
	chdir  string
}

func parseSubmitLineDirectives(submitLine string) sbatchDirectives {
	return sbatchDirectives{
		stdout: parseFlagValue(submitLine, outputFlagRe),
		stderr: parseFlagValue(submitLine, errorFlagRe),
		chdir:  parseFlagValue(submitLine, chdirFlagRe),
	}
}

func parseFlagValue(text string, re *regexp.Regexp) string {
	matches := re.FindStringSubmatch(text)
	if len(matches) < 3 {
		return ""
	}
	return cleanSbatchValue(matches[2])
}

func cleanSbatchValue(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "\"'")
	if idx := strings.IndexAny(value, "\n\r"); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

// resolveLogPath expands the filename patterns sbatch understands for a
// record and makes the result absolute against baseDir.
func resolveLogPath(value, baseDir string, rec JobRecord) string {
	value = cleanSbatchValue(value)
	if value == "" {
		return ""
	}

	master, task := rec.JobID, ""
	if base, index, ok := splitArrayTask(rec.JobID); ok {
		master, task = base, fmt.Sprint(index)
	}
	value = strings.ReplaceAll(value, "%A", master)
	value = strings.ReplaceAll(value, "%j", rec.JobID)
	if task != "" {
		value = strings.ReplaceAll(value, "%a", task)
	}
	if rec.JobName != "" {
		value = strings.ReplaceAll(value, "%x", rec.JobName)
	}

	if !strings.HasPrefix(value, "/") && baseDir != "" {
		value = path.Join(baseDir, value)
	}
	return value
}

func expandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
