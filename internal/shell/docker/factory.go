package docker

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// Engine Factory
// =============================================================================

// Engine modes accepted by NewEngine.
const (
	ModeSDK = "sdk"
	ModeCLI = "cli"
	ModeSSH = "ssh"
)

// EngineConfig selects and configures an engine implementation. The zero
// value means the SDK engine against the local daemon.
type EngineConfig struct {
	// Mode is sdk, cli, or ssh. Empty means sdk.
	Mode string `mapstructure:"mode"`

	// Host overrides the daemon address for sdk and cli modes. For ssh
	// mode it is the remote host, optionally host:port.
	Host string `mapstructure:"host"`

	// SSHUser and SSHKeyFile authenticate ssh mode.
	SSHUser    string `mapstructure:"ssh_user"`
	SSHKeyFile string `mapstructure:"ssh_key_file"`

	// SSHSocket is the daemon socket path on the remote host.
	SSHSocket string `mapstructure:"ssh_socket"`
}

// NewEngine builds the engine the config names.
func NewEngine(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", ModeSDK:
		return NewSDKEngine(cfg.Host, logger)
	case ModeCLI:
		return NewCLIEngine(cfg.Host, logger)
	case ModeSSH:
		return newSSHEngineFromConfig(cfg, logger)
	default:
		return nil, newEngineError("NewEngine", "", "",
			fmt.Sprintf("unknown engine mode %q (want sdk, cli, or ssh)", cfg.Mode), ErrEngineUnusable)
	}
}

func newSSHEngineFromConfig(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	if cfg.Host == "" {
		return nil, newEngineError("NewEngine", "", "", "ssh mode requires a host", ErrEngineUnusable)
	}
	if cfg.SSHUser == "" {
		return nil, newEngineError("NewEngine", "", "", "ssh mode requires ssh_user", ErrEngineUnusable)
	}
	if cfg.SSHKeyFile == "" {
		return nil, newEngineError("NewEngine", "", "", "ssh mode requires ssh_key_file", ErrEngineUnusable)
	}

	key, err := os.ReadFile(cfg.SSHKeyFile)
	if err != nil {
		return nil, newEngineError("NewEngine", "", "", "read SSH key: "+err.Error(), ErrEngineUnusable)
	}

	host := cfg.Host
	port := 0
	if h, p, splitErr := net.SplitHostPort(cfg.Host); splitErr == nil {
		if n, convErr := strconv.Atoi(p); convErr == nil {
			host, port = h, n
		}
	}

	return NewSSHEngine(SSHEngineConfig{
		Host:         host,
		Port:         port,
		User:         cfg.SSHUser,
		PrivateKey:   key,
		RemoteSocket: cfg.SSHSocket,
	}, logger)
}
