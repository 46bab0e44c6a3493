// Package config loads and validates the YAML configuration files for the
// picopost commands. Flags override file values, so both commands run with
// no config file at all.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "10s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML formats the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Client is the client command configuration.
type Client struct {
	// Server is the peer hostname or IP address.
	Server string `yaml:"server" validate:"required"`

	// Port is the peer TLS port.
	Port uint16 `yaml:"port" validate:"required,gte=1"`

	// Message is the request body before percent-encoding.
	Message string `yaml:"message" validate:"required"`

	// Timeout is the per-attempt timeout budget.
	Timeout Duration `yaml:"timeout"`

	// Retries bounds link-establishment attempts.
	Retries int `yaml:"retries" validate:"gte=1,lte=10"`

	// RetryProtocolFailures also spends retries on attempt failures.
	RetryProtocolFailures bool `yaml:"retry_protocol_failures"`

	// Interface, when set, is the network interface treated as the link.
	Interface string `yaml:"interface"`

	// CAFile is a PEM file with the CA (or pinned server certificate).
	// Empty selects the system pool.
	CAFile string `yaml:"ca_file" validate:"omitempty,file"`

	// Insecure disables certificate verification. Testing only.
	Insecure bool `yaml:"insecure"`

	// EventLog, when set, appends CBOR-encoded attempt events to this file.
	EventLog string `yaml:"event_log"`

	// LogLevel controls terminal logging.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultClient returns the client defaults.
func DefaultClient() Client {
	return Client{
		Port:     443,
		Message:  "hello world",
		Timeout:  Duration(10 * time.Second),
		Retries:  3,
		LogLevel: "info",
	}
}

// Server is the server command configuration.
type Server struct {
	// Address to listen on. Ignored when Interface is set.
	Address string `yaml:"address"`

	// Interface, when set, binds the listener to this interface's address.
	Interface string `yaml:"interface"`

	// Port is the listen port, used with Interface.
	Port uint16 `yaml:"port" validate:"required,gte=1"`

	// CertFile and KeyFile hold the server's PEM identity. When both are
	// empty a self-signed certificate is generated at startup.
	CertFile string `yaml:"cert_file" validate:"required_with=KeyFile,omitempty,file"`
	KeyFile  string `yaml:"key_file" validate:"required_with=CertFile,omitempty,file"`

	// MaxRequestSize caps one buffered request in bytes.
	MaxRequestSize int `yaml:"max_request_size" validate:"gte=64"`

	// StateFile, when set, receives the latest decoded message.
	StateFile string `yaml:"state_file"`

	// MDNSInstance, when set, advertises the service under this name.
	MDNSInstance string `yaml:"mdns_instance"`

	// EventLog, when set, appends CBOR-encoded request events to this file.
	EventLog string `yaml:"event_log"`

	// LogLevel controls terminal logging.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultServer returns the server defaults.
func DefaultServer() Server {
	return Server{
		Address:        ":443",
		Port:           443,
		MaxRequestSize: 4096,
		LogLevel:       "info",
	}
}

// LoadClient reads path into the client defaults. An empty path returns the
// defaults. Callers validate after applying flag overrides.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if err := load(path, &cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// LoadServer reads path into the server defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := load(path, &cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func load(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
