// Command picopost-client performs one secure POST exchange with a picopost
// server and reports pass or fail.
//
// It resolves the server name, connects over TLS, sends the configured
// message as a percent-encoded form body, prints the response, and exits 0
// on success.
//
// Usage:
//
//	picopost-client [flags]
//
// Flags:
//
//	-config string    Configuration file path (YAML)
//	-server string    Server hostname or IP address
//	-discover string  Find the server via mDNS by instance name
//	-port int         Server port (default 443)
//	-message string   Message to post (default "hello world")
//	-timeout duration Attempt timeout (default 10s)
//	-retries int      Link retry budget (default 3)
//	-interface string Network interface treated as the link
//	-ca string        PEM file with the CA or pinned server certificate
//	-insecure         Skip certificate verification (testing only)
//	-event-log string Append CBOR attempt events to this file
//	-log-level string Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Post to a server with a pinned self-signed certificate
//	picopost-client -server 192.168.1.2 -ca server.crt
//
//	# Use a config file, overriding the message
//	picopost-client -config client.yaml -message "lights on"
//
//	# Find an advertised server on the local network
//	picopost-client -discover workbench -insecure
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"

	"github.com/mytechnotalent/picopost/internal/config"
	"github.com/mytechnotalent/picopost/pkg/cert"
	"github.com/mytechnotalent/picopost/pkg/client"
	"github.com/mytechnotalent/picopost/pkg/discovery"
	"github.com/mytechnotalent/picopost/pkg/log"
	"github.com/mytechnotalent/picopost/pkg/loop"
	"github.com/mytechnotalent/picopost/pkg/resolver"
	"github.com/mytechnotalent/picopost/pkg/transport"
	"github.com/mytechnotalent/picopost/pkg/wire"
)

var (
	configPath = flag.String("config", "", "Configuration file path (YAML)")
	server     = flag.String("server", "", "Server hostname or IP address")
	discover   = flag.String("discover", "", "Find the server via mDNS by instance name")
	port       = flag.Int("port", 0, "Server port")
	message    = flag.String("message", "", "Message to post")
	timeout    = flag.Duration("timeout", 0, "Attempt timeout")
	retries    = flag.Int("retries", 0, "Link retry budget")
	ifaceName  = flag.String("interface", "", "Network interface treated as the link")
	caFile     = flag.String("ca", "", "PEM file with the CA or pinned server certificate")
	insecure   = flag.Bool("insecure", false, "Skip certificate verification (testing only)")
	eventLog   = flag.String("event-log", "", "Append CBOR attempt events to this file")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	stdlog.SetFlags(0)

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}
	applyFlags(&cfg)
	if *discover != "" {
		entry, err := discoverServer(*discover)
		if err != nil {
			stdlog.Fatalf("Discovery failed: %v", err)
		}
		fmt.Printf("Discovered %s\n", entry)
		cfg.Server = entry.Addr.String()
		cfg.Port = entry.Port
	}
	if err := config.Validate(cfg); err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	logger, cleanup, err := buildLogger(cfg)
	if err != nil {
		stdlog.Fatalf("Logging setup failed: %v", err)
	}
	defer cleanup()

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		stdlog.Fatalf("TLS setup failed: %v", err)
	}

	lp := loop.New()

	var link client.Link = client.NoopLink{}
	if cfg.Interface != "" {
		link = &client.InterfaceLink{Name: cfg.Interface}
	}

	drv, err := client.NewDriver(client.DriverConfig{
		Loop:     lp,
		Resolver: resolver.New(lp),
		Dial: func() (client.Conn, error) {
			// Fresh transport configuration per attempt.
			return transport.NewConn(lp, transport.DefaultConfig(tlsCfg.Clone())), nil
		},
		Link:                  link,
		MaxRetries:            cfg.Retries,
		RetryProtocolFailures: cfg.RetryProtocolFailures,
		Logger:                logger,
	})
	if err != nil {
		stdlog.Fatalf("Driver setup failed: %v", err)
	}

	request := wire.BuildRequest(cfg.Server, cfg.Message)
	fmt.Printf("Posting %q to %s\n", cfg.Message, wire.HostPort(cfg.Server, cfg.Port))

	err = drv.Run(context.Background(), cfg.Server, cfg.Port, request, cfg.Timeout.Std())
	switch {
	case err == nil:
		fmt.Println("Test passed.")
	case isLinkFailure(err):
		fmt.Println("Exceeded retry limit.")
		os.Exit(1)
	default:
		fmt.Printf("Test failed: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Client) {
	if *server != "" {
		cfg.Server = *server
	}
	if *port != 0 {
		cfg.Port = uint16(*port)
	}
	if *message != "" {
		cfg.Message = *message
	}
	if *timeout != 0 {
		cfg.Timeout = config.Duration(*timeout)
	}
	if *retries != 0 {
		cfg.Retries = *retries
	}
	if *ifaceName != "" {
		cfg.Interface = *ifaceName
	}
	if *caFile != "" {
		cfg.CAFile = *caFile
	}
	if *insecure {
		cfg.Insecure = true
	}
	if *eventLog != "" {
		cfg.EventLog = *eventLog
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
}

func buildTLSConfig(cfg config.Client) (*tls.Config, error) {
	pool, err := cert.LoadCertPool(splitNonEmpty(cfg.CAFile)...)
	if err != nil {
		return nil, err
	}
	return transport.NewClientTLSConfig(&transport.TLSConfig{
		ServerName:         cfg.Server,
		RootCAs:            pool,
		InsecureSkipVerify: cfg.Insecure,
	})
}

func splitNonEmpty(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

// discoverServer browses the local network for the named service instance.
func discoverServer(instance string) (discovery.Entry, error) {
	found, err := discovery.Lookup(context.Background(), discovery.DefaultBrowseTimeout)
	if err != nil {
		return discovery.Entry{}, err
	}
	for _, entry := range found {
		if entry.Instance == instance {
			return entry, nil
		}
	}
	return discovery.Entry{}, fmt.Errorf("no server advertising %q found", instance)
}

// buildLogger combines terminal logging via slog with optional CBOR event
// capture.
func buildLogger(cfg config.Client) (log.Logger, func(), error) {
	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))
	loggers := []log.Logger{log.NewSlogAdapter(slogger)}

	cleanup := func() {}
	if cfg.EventLog != "" {
		fl, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		cleanup = func() { fl.Close() }
	}

	return log.NewMultiLogger(loggers...), cleanup, nil
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isLinkFailure(err error) bool {
	return errors.Is(err, client.ErrLinkEstablishment)
}
