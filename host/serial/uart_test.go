package serial

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmuctl/protocol"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("line hung up") }
func (failingReader) Close() error             { return nil }

func TestUARTBuffersInput(t *testing.T) {
	in, feed := io.Pipe()
	var out bytes.Buffer
	u := NewUART(Stdio(in, &out), 64)

	_, err := feed.Write([]byte("T1\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return u.Buffered() == 3 }, time.Second, time.Millisecond)

	buf := make([]byte, 8)
	n, err := u.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "T1\n", string(buf[:n]))
	assert.Zero(t, u.Buffered())

	n, err = u.Read(buf)
	assert.NoError(t, err)
	assert.Zero(t, n, "empty ring reads nothing without blocking")

	_, err = u.Write([]byte("ok\n"))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out.String())

	require.NoError(t, feed.Close())
	select {
	case <-u.Done():
	case <-time.After(time.Second):
		t.Fatal("input did not end")
	}
	assert.NoError(t, u.Err())
}

func TestUARTReadError(t *testing.T) {
	u := NewUART(Stdio(failingReader{}, io.Discard), 64)
	<-u.Done()
	require.Error(t, u.Err())
	assert.Contains(t, u.Err().Error(), "line hung up")
}

func TestUARTFeedsLink(t *testing.T) {
	in, feed := io.Pipe()
	var out bytes.Buffer
	u := NewUART(Stdio(in, &out), 64)
	link := protocol.NewLink(u)

	go func() { _, _ = feed.Write([]byte("S1\nA")) }()

	var line string
	require.Eventually(t, func() bool {
		var ok bool
		line, ok = link.ReadLine()
		return ok
	}, time.Second, time.Millisecond)
	assert.Equal(t, "S1", line)

	require.NoError(t, link.Send(protocol.Value(protocol.FirmwareVersion)))
	assert.Equal(t, "104ok\n", out.String())
	require.NoError(t, feed.Close())
}
