// Command xnet-server is a reference secure echo server.
//
// This command demonstrates a complete server built on the secure
// socket layer with:
//   - CLI argument parsing
//   - Configuration file support
//   - Self-signed certificate generation for quick starts
//   - mDNS service advertising
//   - Keepalive probing on accepted connections
//   - Structured connection logging
//
// Usage:
//
//	xnet-server [flags]
//
// Flags:
//
//	-addr string        Listen address (default ":8470")
//	-config string      Configuration file path (YAML)
//	-cert string        Server certificate file (PEM)
//	-key string         Server private key file (PEM)
//	-ca string          CA bundle for client verification (PEM)
//	-verify             Require and verify client certificates
//	-keepalive          Enable keepalive probing on accepted connections
//	-announce string    Advertise over mDNS under this instance name
//	-log string         Write connection events (CBOR) to this file
//
// Examples:
//
//	# Start with an ephemeral self-signed certificate
//	xnet-server -addr :8470
//
//	# Start with real credentials and mutual TLS
//	xnet-server -cert server.pem -key server-key.pem -ca clients.pem -verify
//
//	# Advertise on the local network
//	xnet-server -announce "echo-server" -keepalive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/xnet-project/xnet-go/pkg/cert"
	"github.com/xnet-project/xnet-go/pkg/config"
	"github.com/xnet-project/xnet-go/pkg/discovery"
	"github.com/xnet-project/xnet-go/pkg/engine"
	"github.com/xnet-project/xnet-go/pkg/keepalive"
	xlog "github.com/xnet-project/xnet-go/pkg/log"
	"github.com/xnet-project/xnet-go/pkg/socket"
	"github.com/xnet-project/xnet-go/pkg/wire"
)

var flags struct {
	Addr       string
	ConfigFile string
	CertFile   string
	KeyFile    string
	CAFile     string
	Verify     bool
	KeepAlive  bool
	Announce   string
	LogFile    string
}

func init() {
	flag.StringVar(&flags.Addr, "addr", fmt.Sprintf(":%d", socket.DefaultPort), "Listen address")
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.CertFile, "cert", "", "Server certificate file (PEM)")
	flag.StringVar(&flags.KeyFile, "key", "", "Server private key file (PEM)")
	flag.StringVar(&flags.CAFile, "ca", "", "CA bundle for client verification (PEM)")
	flag.BoolVar(&flags.Verify, "verify", false, "Require and verify client certificates")
	flag.BoolVar(&flags.KeepAlive, "keepalive", false, "Enable keepalive probing on accepted connections")
	flag.StringVar(&flags.Announce, "announce", "", "Advertise over mDNS under this instance name")
	flag.StringVar(&flags.LogFile, "log", "", "Write connection events (CBOR) to this file")
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("xnet Reference Server")
	log.Println("=====================")

	cfg, cleanup, err := buildConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	defer cleanup()

	opts, closeLogger, err := socketOptions()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogger()

	sock, err := socket.Create(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create socket: %v", err)
	}
	defer sock.Close()

	if err := sock.Listen(flags.Addr); err != nil {
		log.Fatalf("Failed to listen on %s: %v", flags.Addr, err)
	}
	log.Printf("Listening on %s", sock.Addr())

	if flags.Announce != "" {
		ann, err := discovery.Announce(discovery.Announcement{
			Instance: flags.Announce,
			Port:     listenPort(sock),
			Role:     cfg.Role.String(),
			Version:  cfg.Version.String(),
		})
		if err != nil {
			log.Printf("Warning: mDNS announce failed: %v", err)
		} else {
			defer ann.Shutdown()
			log.Printf("Advertising as %q (%s)", flags.Announce, discovery.ServiceType)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
		sock.Close()
	}()

	acceptLoop(ctx, sock)

	log.Println("Goodbye!")
}

// buildConfig assembles the server configuration from the config file
// and flags, generating an ephemeral key pair when none is given.
func buildConfig() (*config.Config, func(), error) {
	cfg := config.Default()
	cleanup := func() {}

	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, cleanup, err
		}
		cfg = loaded
	}

	cfg.Role = config.RoleServer
	if flags.CertFile != "" {
		cfg.CertFile = flags.CertFile
	}
	if flags.KeyFile != "" {
		cfg.KeyFile = flags.KeyFile
	}
	if flags.CAFile != "" {
		cfg.CAFile = flags.CAFile
	}
	if flags.Verify {
		cfg.VerifyPeer = true
	}

	if cfg.CertFile == "" && cfg.KeyFile == "" {
		log.Println("No certificate given, generating a self-signed one")
		dir, err := os.MkdirTemp("", "xnet-server-*")
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { os.RemoveAll(dir) }

		ss, err := cert.GenerateSelfSigned(cert.SelfSignedOptions{
			CommonName: "xnet-server",
			DNSNames:   []string{"localhost"},
		})
		if err != nil {
			return nil, cleanup, err
		}
		certFile, keyFile, err := ss.WriteFiles(dir, "server")
		if err != nil {
			return nil, cleanup, err
		}
		cfg.CertFile = certFile
		cfg.KeyFile = keyFile
	}

	return cfg, cleanup, cfg.Validate()
}

func socketOptions() ([]socket.Option, func(), error) {
	if flags.LogFile == "" {
		return nil, func() {}, nil
	}
	logger, err := xlog.NewFileLogger(flags.LogFile)
	if err != nil {
		return nil, func() {}, err
	}
	log.Printf("Logging connection events to %s", flags.LogFile)
	return []socket.Option{socket.WithLogger(logger)}, func() { logger.Close() }, nil
}

func listenPort(sock *socket.Socket) int {
	if tcp, ok := sock.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return socket.DefaultPort
}

func acceptLoop(ctx context.Context, sock *socket.Socket) {
	for {
		peer, err := sock.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, socket.ErrClosed) {
				return
			}
			log.Printf("Accept failed: %v", err)
			continue
		}

		log.Printf("Connection from %s", peer.RemoteAddr())
		if info, err := peer.SecurityInfo(); err == nil {
			log.Printf("  %s / %s / %s", info.Version, info.CipherSuite, info.Curve)
		}

		go serve(ctx, peer)
	}
}

// serve echoes application data back and answers keepalive probes.
func serve(ctx context.Context, peer *socket.Socket) {
	defer peer.Close()

	if flags.KeepAlive {
		if err := peer.EnableKeepAlive(ctx, keepalive.DefaultConfig()); err != nil {
			log.Printf("Failed to enable keepalive: %v", err)
		}
	}

	buf := make([]byte, 16*1024)
	for {
		n, err := peer.Receive(buf)
		if err != nil {
			if errors.Is(err, engine.ErrConnectionClosed) {
				log.Printf("Peer %s closed the connection", peer.RemoteAddr())
			} else if ctx.Err() == nil {
				log.Printf("Receive from %s failed: %v", peer.RemoteAddr(), err)
			}
			return
		}

		data := buf[:n]
		if ctrl, handled := peer.HandleControl(data); handled {
			if ctrl == wire.ControlClose {
				log.Printf("Peer %s requested close", peer.RemoteAddr())
				return
			}
			continue
		}

		if _, err := peer.Send(data); err != nil {
			log.Printf("Send to %s failed: %v", peer.RemoteAddr(), err)
			return
		}
	}
}
