package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config holds the SSH client settings shared by every destination
type Config struct {
	User                  string
	Port                  int
	KnownHosts            string
	InsecureIgnoreHostKey bool
	IdentityFiles         []string
	Timeout               time.Duration
}

// SSHDialer dials destinations with golang.org/x/crypto/ssh
type SSHDialer struct {
	cfg Config
	log logr.Logger
}

var _ Dialer = (*SSHDialer)(nil)

// NewSSHDialer returns a dialer using cfg
func NewSSHDialer(cfg Config, log logr.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &SSHDialer{cfg: cfg, log: log.WithName("remote")}
}

// Dial connects to destination and opens a session on it. The connection
// is torn down if ctx is cancelled before the session is closed.
func (d *SSHDialer) Dial(ctx context.Context, destination string) (Session, error) {
	user, addr, err := ParseDestination(destination, d.cfg.User, d.cfg.Port)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	auth, agentConn := d.authMethods()
	clientCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.cfg.Timeout,
	}

	d.log.V(1).Info("dialing", "user", user, "addr", addr)
	netDialer := net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeQuietly(agentConn)
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	// The agent is only needed for the handshake
	closeQuietly(agentConn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open ssh session on %s: %w", addr, err)
	}

	stop := context.AfterFunc(ctx, func() { client.Close() })
	return &sshSession{client: client, session: session, stop: stop}, nil
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if d.cfg.KnownHosts == "" {
		return nil, errors.New("no known_hosts file configured and host key checking is enabled")
	}
	cb, err := knownhosts.New(d.cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return cb, nil
}

// authMethods offers the ssh agent's keys first, then any readable
// identity files. The returned connection to the agent, if any, must be
// closed once the handshake is over.
func (d *SSHDialer) authMethods() ([]ssh.AuthMethod, io.Closer) {
	var methods []ssh.AuthMethod
	var agentConn io.Closer

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			d.log.V(1).Info("ssh agent unavailable", "socket", sock, "error", err.Error())
		} else {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if signers := d.identitySigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	return methods, agentConn
}

func (d *SSHDialer) identitySigners() []ssh.Signer {
	var signers []ssh.Signer
	for _, path := range d.cfg.IdentityFiles {
		pem, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				d.log.Error(err, "failed to read identity file", "path", path)
			}
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				d.log.V(1).Info("skipping passphrase protected identity file", "path", path)
			} else {
				d.log.Error(err, "failed to parse identity file", "path", path)
			}
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

type sshSession struct {
	client  *ssh.Client
	session *ssh.Session
	stop    func() bool
}

func (s *sshSession) Run(line string, stdout, stderr io.Writer) error {
	s.session.Stdout = stdout
	s.session.Stderr = stderr

	err := s.session.Run(line)
	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return fmt.Errorf("remote session failed: %w", err)
}

func (s *sshSession) Close() error {
	s.stop()
	_ = s.session.Close()
	return s.client.Close()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
