package transport

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HostConfig describes how to reach one remote host.
type HostConfig struct {
	Addr     string `yaml:"addr"`               // ssh destination, e.g. "runner@build1.example.com"
	Port     int    `yaml:"port,omitempty"`     // defaults to ssh's own default
	Identity string `yaml:"identity,omitempty"` // optional private key path
}

// Hosts maps board host names to connection descriptors. Credentials beyond
// an identity file are the ssh client's business, not ours.
type Hosts struct {
	Entries map[string]HostConfig `yaml:"hosts"`
}

// LoadHosts reads a hosts YAML file. A missing file yields an empty table,
// not an error: local-only setups have no hosts file.
func LoadHosts(path string) (*Hosts, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Hosts{Entries: map[string]HostConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}

	h := &Hosts{}
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("parse hosts file: %w", err)
	}
	if h.Entries == nil {
		h.Entries = map[string]HostConfig{}
	}
	return h, nil
}

// DefaultHostsPath returns the default hosts file location.
func DefaultHostsPath() string {
	if p := os.Getenv("DEVBOARD_HOSTS_FILE"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "devboard", "hosts.yaml")
}

// sshArgs builds the ssh invocation for a host name. Unlisted hosts are
// passed through so ~/.ssh/config aliases keep working.
func (e *Exec) sshArgs(host string) ([]string, error) {
	args := []string{"-o", "BatchMode=yes"}

	if e.hosts == nil {
		return append(args, host), nil
	}

	cfg, ok := e.hosts.Entries[host]
	if !ok {
		return append(args, host), nil
	}
	if cfg.Addr == "" {
		return nil, &ConnectionError{Host: host, Err: fmt.Errorf("host entry has no addr")}
	}

	if cfg.Port != 0 {
		args = append(args, "-p", fmt.Sprintf("%d", cfg.Port))
	}
	if cfg.Identity != "" {
		args = append(args, "-i", cfg.Identity)
	}
	return append(args, cfg.Addr), nil
}
