package command

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"sync"
	"time"
)

// backlogMax bounds the lines Drain retains for a later Expect.
const backlogMax = 1024

// NetConsole speaks the ground station's TCP console. A background
// reader feeds received lines into a channel; Drain moves them into a
// backlog so the socket never backs up while a telemetry wait is
// spinning, and Expect searches backlog first, then live lines.
type NetConsole struct {
	conn  net.Conn
	log   *slog.Logger
	lines chan string

	mu      sync.Mutex
	backlog []string
}

// Dial connects to the console at addr.
func Dial(addr string, log *slog.Logger) (*NetConsole, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("console dial %s: %w", addr, err)
	}
	n := &NetConsole{conn: conn, log: log, lines: make(chan string, 256)}
	go n.readLoop()
	return n, nil
}

func (n *NetConsole) readLoop() {
	sc := bufio.NewScanner(n.conn)
	for sc.Scan() {
		n.lines <- sc.Text()
	}
	close(n.lines)
}

// Send writes one command line.
func (n *NetConsole) Send(line string) error {
	n.log.Debug("console send", "line", line)
	if _, err := fmt.Fprintf(n.conn, "%s\n", line); err != nil {
		return fmt.Errorf("console send: %w", err)
	}
	return nil
}

// Expect blocks until a line matches pattern, searching drained backlog
// before live input. The matched line and everything before it are
// discarded from the backlog.
func (n *NetConsole) Expect(pattern string, timeout time.Duration) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	for i, l := range n.backlog {
		if m := re.FindStringSubmatch(l); m != nil {
			n.backlog = n.backlog[i+1:]
			n.mu.Unlock()
			return m, nil
		}
	}
	n.backlog = n.backlog[:0]
	n.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case l, ok := <-n.lines:
			if !ok {
				return nil, ErrConsoleClosed
			}
			n.log.Debug("console recv", "line", l)
			if m := re.FindStringSubmatch(l); m != nil {
				return m, nil
			}
		case <-deadline.C:
			return nil, fmt.Errorf("console: no match for %q within %s", pattern, timeout)
		}
	}
}

// Drain moves any pending console lines to the backlog without
// blocking. Registered as an accessor idle listener so console output
// keeps flowing while telemetry loops spin.
func (n *NetConsole) Drain() {
	for {
		select {
		case l, ok := <-n.lines:
			if !ok {
				return
			}
			n.mu.Lock()
			n.backlog = append(n.backlog, l)
			if len(n.backlog) > backlogMax {
				n.backlog = n.backlog[len(n.backlog)-backlogMax:]
			}
			n.mu.Unlock()
		default:
			return
		}
	}
}

// Close tears down the connection; the read loop exits on the next read.
func (n *NetConsole) Close() error {
	return n.conn.Close()
}
