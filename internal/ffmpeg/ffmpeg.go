package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"stagecap/internal/logging"
	"stagecap/internal/services"
)

var commandContext = exec.CommandContext

const stderrTailLines = 20

// Progress is one progress sample of a running ffmpeg invocation.
type Progress struct {
	OutTimeSec  float64
	DurationSec float64
	// Percent is -1 while the input duration is unknown.
	Percent float64
}

// ExitError reports a non-zero ffmpeg exit with the tail of its stderr.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, e.Stderr)
}

// Runner invokes the ffmpeg binary.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner constructs a runner for binary (default "ffmpeg").
func NewRunner(binary string, logger *slog.Logger) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Binary returns the executable the runner invokes.
func (r *Runner) Binary() string { return r.binary }

// Run executes ffmpeg with args. Output is parsed only for progress; success
// is a zero exit. A non-zero exit returns an *ExitError tagged with
// services.ErrTranscodeFailure. expectedSec is the output length used for
// percentages; when zero the input duration from the banner is used.
func (r *Runner) Run(ctx context.Context, args []string, expectedSec float64, progress func(Progress)) error {
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	r.logger.Debug("ffmpeg start", logging.String("args", strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start", r.binary, err)
	}

	tracker := &progressTracker{callback: progress, duration: max(0, expectedSec)}
	tail := newTail(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stderr, func(line string) {
			tail.add(line)
			tracker.stderrLine(line)
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(stdout, tracker.stdoutLine)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %w", services.ErrTranscodeFailure, &ExitError{Code: exitErr.ExitCode(), Stderr: tail.String()})
		}
		return services.Wrap(services.ErrTranscodeFailure, "ffmpeg", "wait", "", err)
	}
	return nil
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// scanCRLF splits on \n or \r since ffmpeg rewrites its status line in place.
func scanCRLF(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseDuration extracts the input duration from an ffmpeg stderr banner line.
func ParseDuration(line string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h*3600+mins*60) + secs, true
}

// ParseOutTime extracts the encoded position from a -progress line.
func ParseOutTime(line string) (float64, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok || strings.TrimSpace(key) != "out_time_ms" {
		return 0, false
	}
	// out_time_ms is reported in microseconds.
	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

type progressTracker struct {
	mu       sync.Mutex
	callback func(Progress)
	duration float64
}

func (t *progressTracker) stderrLine(line string) {
	if d, ok := ParseDuration(line); ok {
		t.mu.Lock()
		if t.duration == 0 {
			t.duration = d
		}
		t.mu.Unlock()
	}
}

func (t *progressTracker) stdoutLine(line string) {
	out, ok := ParseOutTime(line)
	if !ok || t.callback == nil {
		return
	}
	t.mu.Lock()
	p := Progress{OutTimeSec: out, DurationSec: t.duration, Percent: -1}
	if t.duration > 0 {
		p.Percent = min(100, out/t.duration*100)
	}
	t.mu.Unlock()
	t.callback(p)
}

type tail struct {
	mu    sync.Mutex
	size  int
	lines []string
}

func newTail(size int) *tail { return &tail{size: size} }

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = t.lines[len(t.lines)-t.size:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
