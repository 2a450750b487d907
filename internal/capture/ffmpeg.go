package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"stagecap/internal/config"
	"stagecap/internal/logging"
	"stagecap/internal/services"
	"stagecap/internal/session"
)

var commandContext = exec.CommandContext

// Grabber records the display and audio with an ffmpeg grab process.
type Grabber struct {
	binary      string
	inputArgs   []string
	outputArgs  []string
	dest        string
	stopTimeout time.Duration
	logger      *slog.Logger
}

// NewGrabber builds a grabber writing to dest.
func NewGrabber(cfg *config.Config, dest string, logger *slog.Logger) *Grabber {
	return &Grabber{
		binary:      cfg.FFmpegBinary(),
		inputArgs:   append([]string(nil), cfg.Capture.InputArgs...),
		outputArgs:  append([]string(nil), cfg.Capture.OutputArgs...),
		dest:        dest,
		stopTimeout: cfg.CaptureStopTimeout(),
		logger:      logging.NewComponentLogger(logger, "capture"),
	}
}

// Args returns the grab invocation.
func (g *Grabber) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "warning", "-y"}
	args = append(args, g.inputArgs...)
	args = append(args, g.outputArgs...)
	return append(args, g.dest)
}

// Start launches ffmpeg. The process outlives ctx cancellation so Stop can
// flush the container cleanly.
func (g *Grabber) Start(ctx context.Context) (session.Stream, error) {
	if err := os.MkdirAll(filepath.Dir(g.dest), 0o755); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}
	cmd := commandContext(context.WithoutCancel(ctx), g.binary, g.Args()...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	s := &grabStream{cmd: cmd, stdin: stdin, dest: g.dest, timeout: g.stopTimeout, logger: g.logger, done: make(chan struct{})}
	cmd.Stderr = &s.stderr
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "capture", "start", g.binary, err)
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()
	g.logger.Info("capture process started", logging.String("dest", g.dest), logging.Int("pid", cmd.Process.Pid))
	return s, nil
}

type grabStream struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	dest    string
	timeout time.Duration
	logger  *slog.Logger
	stderr  lockedBuffer

	done    chan struct{}
	waitErr error

	once    sync.Once
	stopErr error
}

// Stop asks ffmpeg to quit, waits for it to finalize the file, and escalates
// to interrupt and then kill when it does not exit in time.
func (s *grabStream) Stop(ctx context.Context) (string, error) {
	s.once.Do(func() { s.stopErr = s.stop(ctx) })
	if s.stopErr != nil {
		return "", s.stopErr
	}
	return s.dest, nil
}

func (s *grabStream) stop(ctx context.Context) error {
	select {
	case <-s.done:
		return s.exitError("capture exited early")
	default:
	}

	_, _ = io.WriteString(s.stdin, "q\n")
	_ = s.stdin.Close()
	if s.await(ctx, s.timeout) {
		return s.exitError("")
	}

	logging.WarnWithContext(s.logger, "capture did not stop in time; interrupting", "capture_stop_slow",
		logging.Duration("timeout", s.timeout),
		logging.String(logging.FieldImpact, "recording tail may be truncated"),
	)
	_ = s.cmd.Process.Signal(os.Interrupt)
	if s.await(ctx, 5*time.Second) {
		return s.exitError("")
	}
	_ = s.cmd.Process.Kill()
	<-s.done
	return services.Wrap(services.ErrTimeout, "capture", "stop", "ffmpeg killed", nil)
}

func (s *grabStream) await(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// exitError treats a missing output as failure; ffmpeg exits non-zero on
// q for some grab devices even when the file is complete.
func (s *grabStream) exitError(msg string) error {
	info, statErr := os.Stat(s.dest)
	if statErr == nil && info.Size() > 0 {
		if s.waitErr != nil {
			s.logger.Debug("capture exited non-zero with output present", logging.Error(s.waitErr))
		}
		return nil
	}
	if msg == "" {
		msg = "no output written"
	}
	var err error = errors.New(msg)
	if s.waitErr != nil {
		err = fmt.Errorf("%s: %w", msg, s.waitErr)
	}
	return services.Wrap(services.ErrExternalTool, "capture", "stop", s.stderr.String(), err)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() > 16*1024 {
		b.buf.Reset()
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf.Bytes()))
}
