package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"reclaim/internal/logging"
)

// DockerConfig controls the docker-backed runner.
type DockerConfig struct {
	// ContainerID is the name or ID of a running container.
	ContainerID string
	// WorkDir is the in-container directory programs are uploaded to.
	WorkDir string
	// RunTimeout is the hard wall-clock limit for a program run.
	RunTimeout time.Duration
	// ExecTimeout bounds single inspection commands.
	ExecTimeout time.Duration
}

// DefaultDockerConfig returns the runner defaults for a container.
func DefaultDockerConfig(containerID string) DockerConfig {
	return DockerConfig{
		ContainerID: containerID,
		WorkDir:     "/tmp",
		RunTimeout:  90 * time.Second,
		ExecTimeout: 15 * time.Second,
	}
}

// Docker runs programs in a container via the docker CLI. The container
// image is expected to ship the Go toolchain.
type Docker struct {
	cfg DockerConfig
}

// NewDocker validates the config and returns a runner.
func NewDocker(cfg DockerConfig) (*Docker, error) {
	if cfg.ContainerID == "" {
		return nil, fmt.Errorf("sandbox: container ID is required")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "/tmp"
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 90 * time.Second
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 15 * time.Second
	}
	return &Docker{cfg: cfg}, nil
}

// RunProgram uploads code into the container, reads it back for corruption
// checks, and executes it under the run timeout. A timeout forcibly kills
// the run and returns ErrTimeout alongside a partial result.
func (d *Docker) RunProgram(ctx context.Context, code string) (ExecResult, error) {
	log := logging.Get(logging.CategorySandbox)

	local, err := writeTempProgram(code)
	if err != nil {
		return ExecResult{}, fmt.Errorf("sandbox: stage program: %w", err)
	}
	defer os.Remove(local)

	remote := filepath.Join(d.cfg.WorkDir, filepath.Base(local))
	if _, _, err := d.runDocker(ctx, d.cfg.ExecTimeout, "cp", local, d.cfg.ContainerID+":"+remote); err != nil {
		return ExecResult{}, fmt.Errorf("sandbox: upload program: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), d.cfg.ExecTimeout)
		defer cancel()
		_, _, _ = d.runDocker(cleanupCtx, d.cfg.ExecTimeout, "exec", d.cfg.ContainerID, "rm", "-f", remote)
	}()

	_, reflected, err := d.runDocker(ctx, d.cfg.ExecTimeout, "exec", d.cfg.ContainerID, "cat", remote)
	if err != nil {
		return ExecResult{}, fmt.Errorf("sandbox: read back program: %w", err)
	}

	log.Debugw("running program", "container", d.cfg.ContainerID, "path", remote)
	exitCode, output, err := d.runDocker(ctx, d.cfg.RunTimeout, "exec", d.cfg.ContainerID, "go", "run", remote)
	result := ExecResult{ExitCode: exitCode, Output: output, ReflectedCode: reflected}
	if errors.Is(err, ErrTimeout) {
		log.Warnw("program timed out", "timeout", d.cfg.RunTimeout)
		return result, ErrTimeout
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Exec runs one command inside the container.
func (d *Docker) Exec(ctx context.Context, argv ...string) (int, string, error) {
	if len(argv) == 0 {
		return 0, "", fmt.Errorf("sandbox: empty command")
	}
	args := append([]string{"exec", d.cfg.ContainerID}, argv...)
	return d.runDocker(ctx, d.cfg.ExecTimeout, args...)
}

// runDocker executes the docker CLI under a deadline. The child is put in
// its own process group so a timeout kills the whole tree, not just the
// docker client.
func (d *Docker) runDocker(ctx context.Context, timeout time.Duration, args ...string) (int, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "docker", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()

	if runCtx.Err() == context.DeadlineExceeded {
		return -1, output, ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), output, nil
		}
		return -1, output, fmt.Errorf("sandbox: docker %v: %w", args[0], err)
	}
	return 0, output, nil
}

func writeTempProgram(code string) (string, error) {
	dir := os.TempDir()
	name := filepath.Join(dir, fmt.Sprintf("reclaim_%s.go", uuid.NewString()[:8]))
	if err := os.WriteFile(name, []byte(code), 0o644); err != nil {
		return "", err
	}
	return name, nil
}
