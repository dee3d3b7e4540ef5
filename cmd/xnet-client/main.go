// Command xnet-client is an interactive secure client.
//
// It connects to an xnet server over TLS and provides a small command
// shell for sending data, probing the connection, and inspecting the
// negotiated security parameters.
//
// Usage:
//
//	xnet-client [flags]
//
// Flags:
//
//	-addr string        Server address (host:port)
//	-discover           Find a server over mDNS instead of -addr
//	-config string      Configuration file path (YAML)
//	-ca string          CA bundle for server verification (PEM)
//	-cert string        Client certificate file (PEM)
//	-key string         Client private key file (PEM)
//	-insecure           Skip server certificate verification
//	-log string         Write connection events (CBOR) to this file
//
// Interactive Commands:
//
//	send <text>  - Send text and print the echoed reply
//	info         - Show negotiated TLS parameters
//	keepalive    - Enable keepalive probing
//	stats        - Show keepalive statistics
//	close        - Send a close notification and disconnect
//	quit         - Exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"

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
	Discover   bool
	ConfigFile string
	CAFile     string
	CertFile   string
	KeyFile    string
	Insecure   bool
	LogFile    string
}

func init() {
	flag.StringVar(&flags.Addr, "addr", "", "Server address (host:port)")
	flag.BoolVar(&flags.Discover, "discover", false, "Find a server over mDNS instead of -addr")
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.CAFile, "ca", "", "CA bundle for server verification (PEM)")
	flag.StringVar(&flags.CertFile, "cert", "", "Client certificate file (PEM)")
	flag.StringVar(&flags.KeyFile, "key", "", "Client private key file (PEM)")
	flag.BoolVar(&flags.Insecure, "insecure", false, "Skip server certificate verification")
	flag.StringVar(&flags.LogFile, "log", "", "Write connection events (CBOR) to this file")
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime)

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := flags.Addr
	if addr == "" {
		if !flags.Discover {
			log.Fatal("Either -addr or -discover is required")
		}
		log.Println("Browsing for a server...")
		peer, err := discovery.FindFirst(ctx, 5*time.Second)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		addr = peer.Addr()
		log.Printf("Found %q at %s", peer.Instance, addr)
	}

	var opts []socket.Option
	if flags.LogFile != "" {
		logger, err := xlog.NewFileLogger(flags.LogFile)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logger.Close()
		opts = append(opts, socket.WithLogger(logger))
	}

	sock, err := socket.Create(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create socket: %v", err)
	}
	defer sock.Close()

	log.Printf("Connecting to %s...", addr)
	if err := sock.Connect(ctx, addr); err != nil {
		log.Fatalf("Connect failed: %v", err)
	}

	if info, err := sock.SecurityInfo(); err == nil {
		log.Printf("Connected: %s / %s / %s", info.Version, info.CipherSuite, info.Curve)
	}

	if err := runShell(ctx, sock); err != nil {
		log.Fatalf("Shell failed: %v", err)
	}

	log.Println("Goodbye!")
}

func buildConfig() (*config.Config, error) {
	cfg := config.Default()

	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Role = config.RoleClient
	if flags.CertFile != "" {
		cfg.CertFile = flags.CertFile
	}
	if flags.KeyFile != "" {
		cfg.KeyFile = flags.KeyFile
	}
	if flags.CAFile != "" {
		cfg.CAFile = flags.CAFile
		cfg.VerifyPeer = true
	}
	if flags.Insecure {
		cfg.VerifyPeer = false
		cfg.CAFile = ""
	}

	return cfg, cfg.Validate()
}

// shell is the interactive command loop state.
type shell struct {
	sock *socket.Socket
	rl   *readline.Instance

	// draining is set once the background receive loop owns all reads.
	draining bool
}

func runShell(ctx context.Context, sock *socket.Socket) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "xnet> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Route log output through readline so it does not clobber the prompt.
	log.SetOutput(rl.Stdout())

	sh := &shell{sock: sock, rl: rl}
	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.SplitN(input, " ", 2)
		cmd := strings.ToLower(parts[0])
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help", "?":
			sh.printHelp()

		case "send", "s":
			sh.cmdSend(arg)

		case "info", "i":
			sh.cmdInfo()

		case "keepalive", "ka":
			sh.cmdKeepAlive(ctx)

		case "stats":
			sh.cmdStats()

		case "close":
			sh.cmdClose()
			return nil

		case "quit", "exit", "q":
			return nil

		default:
			fmt.Fprintf(rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (sh *shell) printHelp() {
	out := sh.rl.Stdout()
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  send <text>  - Send text and print the echoed reply")
	fmt.Fprintln(out, "  info         - Show negotiated TLS parameters")
	fmt.Fprintln(out, "  keepalive    - Enable keepalive probing")
	fmt.Fprintln(out, "  stats        - Show keepalive statistics")
	fmt.Fprintln(out, "  close        - Send a close notification and disconnect")
	fmt.Fprintln(out, "  quit         - Exit")
}

func (sh *shell) cmdSend(text string) {
	out := sh.rl.Stdout()
	if text == "" {
		fmt.Fprintln(out, "Usage: send <text>")
		return
	}

	if _, err := sh.sock.Send([]byte(text)); err != nil {
		fmt.Fprintf(out, "Send failed: %v\n", err)
		return
	}

	// With the drain loop running it owns all reads and prints the
	// reply when it arrives.
	if sh.draining {
		return
	}

	reply, err := sh.receiveData()
	if err != nil {
		if errors.Is(err, engine.ErrConnectionClosed) {
			fmt.Fprintln(out, "Connection closed by peer")
		} else {
			fmt.Fprintf(out, "Receive failed: %v\n", err)
		}
		return
	}
	fmt.Fprintf(out, "< %s\n", reply)
}

// receiveData reads until a non-control payload arrives, so interleaved
// keepalive traffic does not show up as echo replies.
func (sh *shell) receiveData() ([]byte, error) {
	buf := make([]byte, 16*1024)
	for {
		n, err := sh.sock.Receive(buf)
		if err != nil {
			return nil, err
		}
		data := buf[:n]
		if _, handled := sh.sock.HandleControl(data); handled {
			continue
		}
		return append([]byte(nil), data...), nil
	}
}

func (sh *shell) cmdInfo() {
	out := sh.rl.Stdout()
	info, err := sh.sock.SecurityInfo()
	if err != nil {
		fmt.Fprintf(out, "No security info: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Version:      %s\n", info.Version)
	fmt.Fprintf(out, "Cipher suite: %s\n", info.CipherSuite)
	fmt.Fprintf(out, "Key exchange: %s\n", info.Curve)
	fmt.Fprintf(out, "Local:        %s\n", sh.sock.LocalAddr())
	fmt.Fprintf(out, "Remote:       %s\n", sh.sock.RemoteAddr())
}

func (sh *shell) cmdKeepAlive(ctx context.Context) {
	out := sh.rl.Stdout()
	if sh.sock.KeepAlive() != nil {
		fmt.Fprintln(out, "Keepalive already enabled")
		return
	}
	if err := sh.sock.EnableKeepAlive(ctx, keepalive.DefaultConfig()); err != nil {
		fmt.Fprintf(out, "Failed to enable keepalive: %v\n", err)
		return
	}
	cfg := keepalive.DefaultConfig()
	fmt.Fprintf(out, "Keepalive enabled (interval %v, detection within %v)\n",
		cfg.Interval, cfg.DetectionDelay())

	// Probe acks arrive interleaved with echo replies, so a background
	// loop takes over all reads once keepalive is on.
	sh.draining = true
	go sh.drainControl(ctx)
}

// drainControl consumes incoming control messages while the shell is
// idle. It stops on any receive error; the next command surfaces it.
func (sh *shell) drainControl(ctx context.Context) {
	buf := make([]byte, 16*1024)
	for ctx.Err() == nil {
		n, err := sh.sock.Receive(buf)
		if err != nil {
			if errors.Is(err, engine.ErrWouldBlock) {
				continue
			}
			return
		}
		data := buf[:n]
		if ctrl, handled := sh.sock.HandleControl(data); handled {
			if ctrl == wire.ControlClose {
				return
			}
			continue
		}
		fmt.Fprintf(sh.rl.Stdout(), "< %s\n", data)
	}
}

func (sh *shell) cmdStats() {
	out := sh.rl.Stdout()
	ka := sh.sock.KeepAlive()
	if ka == nil {
		fmt.Fprintln(out, "Keepalive not enabled")
		return
	}
	stats := ka.Stats()
	fmt.Fprintf(out, "State:         %s\n", stats.State)
	fmt.Fprintf(out, "Current seq:   %d\n", stats.CurrentSeq)
	fmt.Fprintf(out, "Last sent:     %s\n", stats.LastSent.Format(time.RFC3339))
	fmt.Fprintf(out, "Last received: %s\n", stats.LastReceived.Format(time.RFC3339))
	fmt.Fprintf(out, "Retries:       %d\n", stats.Retries)
}

func (sh *shell) cmdClose() {
	out := sh.rl.Stdout()
	if err := sh.sock.SendClose(); err != nil {
		fmt.Fprintf(out, "Close notification failed: %v\n", err)
	}
	if err := sh.sock.Close(); err != nil {
		fmt.Fprintf(out, "Close failed: %v\n", err)
	}
}
