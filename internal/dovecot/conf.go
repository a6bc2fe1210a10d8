package dovecot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"syncer/internal/services"
)

// ErrMissingSetting reports an empty doveconf value.
var ErrMissingSetting = errors.New("missing dovecot setting")

// Setting names read by the syncer.
const (
	SettingDoveadmPort = "doveadm_port"
	SettingMailHome    = "mail_home"
	SettingSieveDir    = "plugin/sieve_dir"
	SettingSieveActive = "plugin/sieve"
	SettingSyncerPipe  = "plugin/syncer_pipe"
)

// Conf looks up dovecot settings through doveconf.
type Conf struct {
	runner Runner
}

// NewConf wraps runner.
func NewConf(runner Runner) *Conf {
	return &Conf{runner: runner}
}

// Setting returns the value of name, or ErrMissingSetting when it is empty.
func (c *Conf) Setting(ctx context.Context, name string) (string, error) {
	value, err := c.runner.Run(ctx, Command{Name: Doveconf, Args: []string{"-h", name}})
	if err != nil {
		return "", fmt.Errorf("doveconf %s: %w", name, err)
	}
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingSetting, name)
	}
	return value, nil
}

// DoveadmPort returns the replication listener port.
func (c *Conf) DoveadmPort(ctx context.Context) (int, error) {
	value, err := c.Setting(ctx, SettingDoveadmPort)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return 0, services.Wrap(services.ErrConfiguration, "dovecot", SettingDoveadmPort, fmt.Sprintf("invalid port %q", value), nil)
	}
	return port, nil
}

// SyncerPipe returns the notification pipe path configured for the plugin.
func (c *Conf) SyncerPipe(ctx context.Context) (string, error) {
	return c.Setting(ctx, SettingSyncerPipe)
}

// SplitUser splits "person@domain".
func SplitUser(user string) (person, domain string, err error) {
	person, domain, ok := strings.Cut(user, "@")
	if !ok || person == "" || domain == "" {
		return "", "", services.Wrap(services.ErrValidation, "dovecot", "user", fmt.Sprintf("need person@domain, got %q", user), nil)
	}
	return person, domain, nil
}

// MailHome resolves the absolute home of user from mail_home, which must
// contain both %n and %d.
func (c *Conf) MailHome(ctx context.Context, user string) (string, error) {
	person, domain, err := SplitUser(user)
	if err != nil {
		return "", err
	}
	template, err := c.Setting(ctx, SettingMailHome)
	if err != nil {
		return "", err
	}
	if !strings.Contains(template, "%n") || !strings.Contains(template, "%d") {
		return "", services.Wrap(services.ErrConfiguration, "dovecot", SettingMailHome, fmt.Sprintf("need %%n and %%d in %q", template), nil)
	}
	home := strings.ReplaceAll(template, "%n", person)
	return strings.ReplaceAll(home, "%d", domain), nil
}

// HomePath resolves a "~"-relative setting against the user's home.
func (c *Conf) HomePath(ctx context.Context, user, setting string) (string, error) {
	home, err := c.MailHome(ctx, user)
	if err != nil {
		return "", err
	}
	value, err := c.Setting(ctx, setting)
	if err != nil {
		return "", err
	}
	if !strings.Contains(value, "~") {
		return "", services.Wrap(services.ErrConfiguration, "dovecot", setting, fmt.Sprintf("need \"~\" in %q", value), nil)
	}
	return strings.ReplaceAll(value, "~", home), nil
}

// SieveDir returns the user's sieve directory.
func (c *Conf) SieveDir(ctx context.Context, user string) (string, error) {
	return c.HomePath(ctx, user, SettingSieveDir)
}

// SieveActive returns the user's active sieve script path.
func (c *Conf) SieveActive(ctx context.Context, user string) (string, error) {
	return c.HomePath(ctx, user, SettingSieveActive)
}
