package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mansionnet/quizbot/internal/domain"
)

// Handler receives every inbound chat message.
type Handler func(ev domain.ChatEvent)

type Config struct {
	Server   string
	Port     int
	UseTLS   bool
	Nick     string
	Channels []string
	// SendRate paces outbound lines so the server doesn't flood-kick the bot.
	SendRate  rate.Limit
	SendBurst int
}

func DefaultClientConfig() Config {
	return Config{
		Port:      6697,
		UseTLS:    true,
		SendRate:  rate.Every(600 * time.Millisecond),
		SendBurst: 4,
	}
}

const (
	maxReconnectBackoff = 2 * time.Minute
	dialTimeout         = 15 * time.Second
)

// Client is a minimal IRC client: it joins the configured channels, answers
// PING, forwards PRIVMSG to the handler, and reconnects with capped backoff.
type Client struct {
	cfg     Config
	handler Handler

	sendCh  chan string
	limiter *rate.Limiter
}

func NewClient(cfg Config, handler Handler) *Client {
	return &Client{
		cfg:     cfg,
		handler: handler,
		sendCh:  make(chan string, 128),
		limiter: rate.NewLimiter(cfg.SendRate, cfg.SendBurst),
	}
}

// Say queues one line of chat for the channel. Implements domain.Announcer.
// Lines are dropped when the outbound queue is full; better than blocking a
// game on a slow socket.
func (c *Client) Say(channel, line string) {
	select {
	case c.sendCh <- fmt.Sprintf("PRIVMSG %s :%s", channel, line):
	default:
		slog.Warn("Dropping outbound chat line, queue full", "channel", channel)
	}
}

// Run connects and serves until ctx is cancelled, reconnecting on any
// connection loss.
func (c *Client) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := c.serveOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("IRC connection lost, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxReconnectBackoff {
			backoff = maxReconnectBackoff
		}
	}
}

func (c *Client) serveOnce(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Writer goroutine owns the socket's write side.
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- c.writeLoop(connCtx, conn)
	}()

	c.register(conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 16*1024)
	for scanner.Scan() {
		c.handleLine(scanner.Text())
		select {
		case err := <-writeErr:
			return err
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	return fmt.Errorf("server closed connection")
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(c.cfg.Server, fmt.Sprintf("%d", c.cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	if !c.cfg.UseTLS {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return conn, nil
	}

	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: c.cfg.Server})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

func (c *Client) register(conn net.Conn) {
	fmt.Fprintf(conn, "NICK %s\r\n", c.cfg.Nick)
	fmt.Fprintf(conn, "USER %s 0 * :%s\r\n", c.cfg.Nick, c.cfg.Nick)
}

func (c *Client) handleLine(line string) {
	msg, ok := ParseLine(line)
	if !ok {
		return
	}

	switch msg.Command {
	case "PING":
		c.enqueue("PONG :" + msg.Trailing)
	case "001":
		// Registered; join everything.
		for _, ch := range c.cfg.Channels {
			c.enqueue("JOIN " + ch)
		}
		slog.Info("Connected to IRC", "server", c.cfg.Server, "channels", strings.Join(c.cfg.Channels, ","))
	case "PRIVMSG":
		if channel, user, text, ok := Privmsg(msg); ok {
			c.handler(domain.ChatEvent{Channel: channel, User: user, Text: text, At: time.Now()})
		}
	}
}

func (c *Client) enqueue(line string) {
	select {
	case c.sendCh <- line:
	default:
		slog.Warn("Dropping outbound protocol line, queue full")
	}
}

func (c *Client) writeLoop(ctx context.Context, conn net.Conn) error {
	for {
		select {
		case line := <-c.sendCh:
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
