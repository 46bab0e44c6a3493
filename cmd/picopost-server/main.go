// Command picopost-server runs the blocking single-connection peer that
// picopost clients post to.
//
// It listens for TLS connections, accepts them one at a time, decodes the
// posted form body, and answers every request with a fixed greeting. The
// decoded message can be mirrored to a state file and the service can be
// advertised over mDNS.
//
// Usage:
//
//	picopost-server [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-address string       Listen address (default ":443")
//	-interface string     Bind to this network interface's address
//	-port int             Listen port, used with -interface (default 443)
//	-cert string          Server certificate PEM file
//	-key string           Server key PEM file
//	-max-request int      Request size cap in bytes (default 4096)
//	-state-file string    Write the latest decoded message to this file
//	-mdns string          Advertise the service under this mDNS instance name
//	-event-log string     Append CBOR request events to this file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Self-signed certificate on an unprivileged port
//	picopost-server -address :8443
//
//	# Bind to wlan0 and advertise over mDNS
//	picopost-server -interface wlan0 -port 8443 -mdns workbench
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mytechnotalent/picopost/internal/config"
	"github.com/mytechnotalent/picopost/pkg/cert"
	"github.com/mytechnotalent/picopost/pkg/discovery"
	"github.com/mytechnotalent/picopost/pkg/log"
	"github.com/mytechnotalent/picopost/pkg/persistence"
	"github.com/mytechnotalent/picopost/pkg/server"
	"github.com/mytechnotalent/picopost/pkg/transport"
)

var (
	configPath = flag.String("config", "", "Configuration file path (YAML)")
	address    = flag.String("address", "", "Listen address")
	ifaceName  = flag.String("interface", "", "Bind to this network interface's address")
	port       = flag.Int("port", 0, "Listen port, used with -interface")
	certFile   = flag.String("cert", "", "Server certificate PEM file")
	keyFile    = flag.String("key", "", "Server key PEM file")
	maxRequest = flag.Int("max-request", 0, "Request size cap in bytes")
	stateFile  = flag.String("state-file", "", "Write the latest decoded message to this file")
	mdnsName   = flag.String("mdns", "", "Advertise the service under this mDNS instance name")
	eventLog   = flag.String("event-log", "", "Append CBOR request events to this file")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	stdlog.SetFlags(0)

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}
	applyFlags(&cfg)
	if err := config.Validate(cfg); err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	logger, cleanup, err := buildLogger(cfg)
	if err != nil {
		stdlog.Fatalf("Logging setup failed: %v", err)
	}
	defer cleanup()

	certificate, err := loadCertificate(cfg)
	if err != nil {
		stdlog.Fatalf("Certificate setup failed: %v", err)
	}

	listenAddr := cfg.Address
	if cfg.Interface != "" {
		ifaceAddr, err := server.InterfaceAddress(cfg.Interface)
		if err != nil {
			stdlog.Fatalf("Interface lookup failed: %v", err)
		}
		listenAddr = net.JoinHostPort(ifaceAddr.String(), strconv.Itoa(int(cfg.Port)))
	}

	srv, err := server.New(server.Config{
		TLSConfig:      &transport.TLSConfig{Certificate: certificate},
		Address:        listenAddr,
		MaxRequestSize: cfg.MaxRequestSize,
		Hook:           stateHook(cfg.StateFile),
		Logger:         logger,
	})
	if err != nil {
		stdlog.Fatalf("Server setup failed: %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		stdlog.Fatalf("Listen failed: %v", err)
	}
	fmt.Printf("Listening on %s\n", srv.Addr())

	var adv *discovery.Advertiser
	if cfg.MDNSInstance != "" {
		adv, err = discovery.NewAdvertiser(discovery.Config{
			Instance:  cfg.MDNSInstance,
			Port:      int(cfg.Port),
			Interface: cfg.Interface,
		})
		if err != nil {
			stdlog.Fatalf("mDNS setup failed: %v", err)
		}
		if err := adv.Start(); err != nil {
			stdlog.Fatalf("mDNS announce failed: %v", err)
		}
		fmt.Printf("Advertising as %q\n", cfg.MDNSInstance)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("Shutting down...")
	if adv != nil {
		adv.Stop()
	}
	if err := srv.Stop(); err != nil {
		stdlog.Printf("Shutdown error: %v", err)
	}
}

func applyFlags(cfg *config.Server) {
	if *address != "" {
		cfg.Address = *address
	}
	if *ifaceName != "" {
		cfg.Interface = *ifaceName
	}
	if *port != 0 {
		cfg.Port = uint16(*port)
	}
	if *certFile != "" {
		cfg.CertFile = *certFile
	}
	if *keyFile != "" {
		cfg.KeyFile = *keyFile
	}
	if *maxRequest != 0 {
		cfg.MaxRequestSize = *maxRequest
	}
	if *stateFile != "" {
		cfg.StateFile = *stateFile
	}
	if *mdnsName != "" {
		cfg.MDNSInstance = *mdnsName
	}
	if *eventLog != "" {
		cfg.EventLog = *eventLog
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
}

// loadCertificate loads the configured identity or generates a self-signed
// one for ad-hoc deployments.
func loadCertificate(cfg config.Server) (tls.Certificate, error) {
	if cfg.CertFile != "" {
		return cert.LoadKeyPair(cfg.CertFile, cfg.KeyFile)
	}

	hosts := []string{"localhost", "127.0.0.1"}
	if hostname, err := os.Hostname(); err == nil {
		hosts = append([]string{hostname}, hosts...)
	}
	certificate, _, err := cert.GenerateSelfSigned(hosts...)
	if err != nil {
		return tls.Certificate{}, err
	}
	fmt.Println("Using a generated self-signed certificate.")
	return certificate, nil
}

// stateHook records each decoded message in the state file, if one is
// configured.
func stateHook(path string) server.Hook {
	if path == "" {
		return nil
	}
	store := persistence.NewStateStore(path)
	return func(message string) {
		if err := store.RecordMessage(message); err != nil {
			stdlog.Printf("State file write failed: %v", err)
		}
	}
}

func buildLogger(cfg config.Server) (log.Logger, func(), error) {
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
