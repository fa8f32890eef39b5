package docker

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"golang.org/x/crypto/ssh"
)

// =============================================================================
// SSH Engine
// =============================================================================

// SSHEngineConfig configures the SSH tunnel to a remote daemon.
type SSHEngineConfig struct {
	Host string
	Port int // default 22
	User string

	// PrivateKey is the PEM-encoded private key, already decrypted.
	PrivateKey []byte

	// RemoteSocket is the daemon socket path on the remote host.
	// Default: /var/run/docker.sock.
	RemoteSocket string

	// ConnectTimeout bounds the SSH handshake. Default: 10 seconds.
	ConnectTimeout time.Duration
}

func (c SSHEngineConfig) withDefaults() SSHEngineConfig {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.RemoteSocket == "" {
		c.RemoteSocket = "/var/run/docker.sock"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// SSHEngine is an SDK engine whose API connection is tunneled over SSH to a
// remote host's daemon socket. Every Engine method is inherited from
// SDKEngine; only dialing and shutdown differ.
type SSHEngine struct {
	*SDKEngine
	tunnel *sshTunnel
}

// NewSSHEngine creates an engine for the daemon on a remote host. The
// connection is established lazily on first use.
func NewSSHEngine(cfg SSHEngineConfig, logger *slog.Logger) (*SSHEngine, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, newEngineError("NewSSHEngine", "", "", "parse SSH private key: "+err.Error(), ErrEngineUnusable)
	}

	tunnel := &sshTunnel{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts
			Timeout:         cfg.ConnectTimeout,
		},
		logger: logger,
	}

	sdk, err := newSDKEngine(logger,
		client.WithHost("unix://"+cfg.RemoteSocket),
		client.WithDialContext(tunnel.dial),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, err
	}
	return &SSHEngine{SDKEngine: sdk, tunnel: tunnel}, nil
}

// Close closes the API connection and the SSH tunnel beneath it.
func (e *SSHEngine) Close() error {
	err := e.SDKEngine.Close()
	if tErr := e.tunnel.close(); err == nil {
		err = tErr
	}
	return err
}

// =============================================================================
// Tunnel
// =============================================================================

// sshTunnel dials the remote daemon socket through a shared SSH connection.
type sshTunnel struct {
	addr   string
	config *ssh.ClientConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// dial satisfies the docker client's DialContext hook. network and addr come
// from the engine's configured host, so they name the remote unix socket.
func (t *sshTunnel) dial(_ context.Context, network, addr string) (net.Conn, error) {
	client, err := t.connect()
	if err != nil {
		return nil, err
	}
	conn, err := client.Dial(network, addr)
	if err != nil {
		return nil, newEngineError("Dial", "socket", addr, err.Error(), ErrEngineUnusable)
	}
	return conn, nil
}

// connect establishes the SSH connection if not already connected.
func (t *sshTunnel) connect() (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		// Check if connection is still alive
		if _, _, err := t.client.SendRequest("keepalive@deckhand", true, nil); err == nil {
			return t.client, nil
		}
		// Connection dead, reconnect
		t.client.Close()
		t.client = nil
	}

	t.logger.Debug("dialing SSH", "addr", t.addr, "user", t.config.User)
	client, err := ssh.Dial("tcp", t.addr, t.config)
	if err != nil {
		return nil, newEngineError("ConnectSSH", "host", t.addr, err.Error(), ErrEngineUnusable)
	}
	t.client = client
	return t.client, nil
}

func (t *sshTunnel) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}
