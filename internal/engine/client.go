package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"ytqueue/internal/config"
	"ytqueue/internal/job"
	"ytqueue/internal/logging"
	"ytqueue/internal/services"
)

var commandContext = exec.CommandContext

var percentLine = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%\s*$`)

const (
	stderrTailLines = 20
	waitDelay       = 5 * time.Second
)

// Command names an executable plus its leading arguments.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(strings.Join(append([]string{c.Name}, c.Args...), " "))
}

// Option configures the CommandClient.
type Option func(*CommandClient)

// WithGenerateCommand overrides the generate command.
func WithGenerateCommand(name string, args ...string) Option {
	return func(c *CommandClient) {
		if name != "" {
			c.generate = Command{Name: name, Args: args}
		}
	}
}

// WithUploadCommand overrides the upload command.
func WithUploadCommand(name string, args ...string) Option {
	return func(c *CommandClient) {
		if name != "" {
			c.upload = Command{Name: name, Args: args}
		}
	}
}

// WithTimeout bounds each operation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CommandClient) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CommandClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CommandClient runs the external engine as a child process.
type CommandClient struct {
	generate Command
	upload   Command
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCommandClient constructs a client using the default engine binary.
func NewCommandClient(opts ...Option) *CommandClient {
	c := &CommandClient{
		generate: Command{Name: "ytengine", Args: []string{"generate"}},
		upload:   Command{Name: "ytengine", Args: []string{"upload"}},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [engine] section.
func NewFromConfig(cfg config.Engine, logger *slog.Logger) *CommandClient {
	return NewCommandClient(
		WithGenerateCommand(cfg.GenerateCommand, cfg.GenerateArgs...),
		WithUploadCommand(cfg.UploadCommand, cfg.UploadArgs...),
		WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		WithLogger(logging.NewComponentLogger(logger, "engine")),
	)
}

// Commands returns the configured generate and upload commands.
func (c *CommandClient) Commands() (Command, Command) {
	return c.generate, c.upload
}

// Generate runs the generate command and returns the produced file. When the
// engine reports no result the requested destination is assumed.
func (c *CommandClient) Generate(ctx context.Context, req GenerateRequest, progress ProgressFunc) (string, error) {
	if strings.TrimSpace(req.Params.File) == "" {
		return "", services.Wrap(services.ErrValidation, "generate", "", "audio file required", nil)
	}
	if strings.TrimSpace(req.Dest) == "" {
		return "", services.Wrap(services.ErrValidation, "generate", "", "destination required", nil)
	}
	result, err := c.run(ctx, "generate", c.generate, req, progress)
	if err != nil {
		return "", err
	}
	if result == "" {
		result = req.Dest
	}
	return result, nil
}

// Upload runs the upload command and returns the video id the engine reports.
func (c *CommandClient) Upload(ctx context.Context, req job.UploadRequest, progress ProgressFunc) (string, error) {
	if strings.TrimSpace(req.File) == "" {
		return "", services.Wrap(services.ErrValidation, "upload", "", "video file required", nil)
	}
	result, err := c.run(ctx, "upload", c.upload, req, progress)
	if err != nil {
		return "", err
	}
	if result == "" {
		return "", services.Wrap(services.ErrExternalTool, "upload", c.upload.Name, "engine reported no video id", nil)
	}
	return result, nil
}

type outputLine struct {
	Progress *float64 `json:"progress"`
	Result   *string  `json:"result"`
	Error    *string  `json:"error"`
}

func (c *CommandClient) run(ctx context.Context, phase string, command Command, request any, progress ProgressFunc) (string, error) {
	if command.Name == "" {
		return "", services.Wrap(services.ErrConfiguration, phase, "", "engine command not configured", nil)
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, phase, command.Name, "encode request", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := commandContext(runCtx, command.Name, command.Args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = waitDelay
	stderr := newTailBuffer(stderrTailLines)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, phase, command.Name, "stdout pipe", err)
	}

	c.logger.Debug("engine command starting",
		logging.String(logging.FieldPhase, phase),
		logging.String("command", command.String()),
	)
	started := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrCanceled, phase, command.Name, "", ctx.Err())
		}
		return "", services.Wrap(services.ErrExternalTool, phase, command.Name, "start engine", err)
	}

	var result, engineErr string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m := percentLine.FindStringSubmatch(line); m != nil {
			if value, err := strconv.ParseFloat(m[1], 64); err == nil && progress != nil {
				progress(value)
			}
			continue
		}
		var parsed outputLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		if parsed.Progress != nil && progress != nil {
			progress(*parsed.Progress)
		}
		if parsed.Result != nil {
			result = strings.TrimSpace(*parsed.Result)
		}
		if parsed.Error != nil {
			engineErr = strings.TrimSpace(*parsed.Error)
		}
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	c.logger.Debug("engine command finished",
		logging.String(logging.FieldPhase, phase),
		logging.Duration("elapsed", time.Since(started)),
		logging.Bool("success", waitErr == nil && engineErr == ""),
	)

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return "", services.Wrap(services.ErrCanceled, phase, command.Name, "", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return "", services.Wrap(services.ErrTimeout, phase, command.Name, fmt.Sprintf("exceeded %s", c.timeout), runCtx.Err())
	case engineErr != "":
		return "", services.Wrap(services.ErrExternalTool, phase, command.Name, engineErr, waitErr)
	case waitErr != nil:
		return "", services.Wrap(services.ErrExternalTool, phase, command.Name, stderr.String(), waitErr)
	case scanErr != nil:
		return "", services.Wrap(services.ErrExternalTool, phase, command.Name, "read engine output", scanErr)
	}
	return result, nil
}

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	lines   []string
	partial strings.Builder
}

func newTailBuffer(maxLines int) *tailBuffer {
	return &tailBuffer{max: maxLines}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range string(p) {
		if r == '\n' || r == '\r' {
			b.push()
			continue
		}
		b.partial.WriteRune(r)
	}
	return len(p), nil
}

func (b *tailBuffer) push() {
	line := strings.TrimSpace(b.partial.String())
	b.partial.Reset()
	if line == "" {
		return
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := append([]string(nil), b.lines...)
	if rest := strings.TrimSpace(b.partial.String()); rest != "" {
		lines = append(lines, rest)
	}
	return strings.Join(lines, "; ")
}

var _ Engine = (*CommandClient)(nil)
