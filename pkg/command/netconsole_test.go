package command_test

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitlcheck/pkg/command"
)

// consoleServer accepts one connection and returns writer/reader hooks
// for the test to drive.
func consoleServer(t *testing.T) (addr string, accepted <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		ch <- c
	}()
	return ln.Addr().String(), ch
}

func TestNetConsoleSendAndExpect(t *testing.T) {
	addr, accepted := consoleServer(t)
	con, err := command.Dial(addr, discard())
	require.NoError(t, err)
	defer con.Close()
	srv := <-accepted
	defer srv.Close()

	require.NoError(t, con.Send("param fetch RTL_ALT"))
	line, err := bufio.NewReader(srv).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "param fetch RTL_ALT\n", line)

	fmt.Fprintf(srv, "chatter line\n")
	fmt.Fprintf(srv, "RTL_ALT = 1500.000000\n")
	m, err := con.Expect(`RTL_ALT = ([-0-9.]+)`, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1500.000000", m[1])
}

func TestNetConsoleExpectTimesOut(t *testing.T) {
	addr, accepted := consoleServer(t)
	con, err := command.Dial(addr, discard())
	require.NoError(t, err)
	defer con.Close()
	srv := <-accepted
	defer srv.Close()

	_, err = con.Expect(`never matches`, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no match")
}

func TestNetConsoleDrainFeedsLaterExpect(t *testing.T) {
	addr, accepted := consoleServer(t)
	con, err := command.Dial(addr, discard())
	require.NoError(t, err)
	defer con.Close()
	srv := <-accepted
	defer srv.Close()

	fmt.Fprintf(srv, "numLogs 3 lastLog 3\n")
	// give the read loop a moment, then pull the line into the backlog
	// the way the accessor idle hook would
	time.Sleep(100 * time.Millisecond)
	con.Drain()

	m, err := con.Expect(`numLogs (\d+)`, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "3", m[1])
}
