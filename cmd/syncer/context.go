package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"syncer/internal/config"
	"syncer/internal/ipc"
)

// skipConfigAnnotation marks commands that must run without a loadable config.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext carries the persistent flags and the lazily loaded config
// shared by every subcommand.
type commandContext struct {
	socketOverride string
	configFile     string

	load       sync.Once
	cfg        *config.Config
	configPath string
	configSeen bool
	loadErr    error
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	c.load.Do(func() {
		c.cfg, c.configPath, c.configSeen, c.loadErr = config.Load(strings.TrimSpace(c.configFile))
	})
	return c.cfg, c.loadErr
}

// currentConfig returns the loaded config, or defaults when loading failed.
func (c *commandContext) currentConfig() *config.Config {
	if cfg, err := c.loadConfig(); err == nil && cfg != nil {
		return cfg
	}
	cfg := config.Default()
	return &cfg
}

// socketPath resolves --socket, then paths.socket_path.
func (c *commandContext) socketPath() string {
	if socket := strings.TrimSpace(c.socketOverride); socket != "" {
		return socket
	}
	if socket := c.currentConfig().Paths.SocketPath; socket != "" {
		return socket
	}
	return filepath.Join(os.TempDir(), "syncer.sock")
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return describeDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func describeDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `syncer start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; the daemon may have exited, run `syncer start`", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
