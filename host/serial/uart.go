package serial

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"mmuctl/core"
	"mmuctl/protocol"
)

// UART adapts a blocking Port to drivers.UART. A reader goroutine moves
// received bytes into a ring; Read and Buffered only look at the ring.
type UART struct {
	port Port

	mu  sync.Mutex
	rx  *protocol.Ring
	err error

	wmu  sync.Mutex
	done chan struct{}
}

// NewUART starts reading port into a ring of size bytes
func NewUART(port Port, size int) *UART {
	u := &UART{
		port: port,
		rx:   protocol.NewRing(size),
		done: make(chan struct{}),
	}
	go u.run()
	return u
}

func (u *UART) run() {
	defer close(u.done)
	var buf [64]byte
	for {
		n, err := u.port.Read(buf[:])
		if n > 0 {
			u.mu.Lock()
			if u.rx.Write(buf[:n]) < n {
				core.DebugPrintln("[SERIAL] receive buffer full, bytes dropped")
			}
			u.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				u.mu.Lock()
				u.err = errors.Wrap(err, "serial read")
				u.mu.Unlock()
			}
			return
		}
	}
}

// Read implements drivers.UART. It never blocks.
func (u *UART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Read(p), nil
}

// Buffered implements drivers.UART
func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Available()
}

// Write implements drivers.UART
func (u *UART) Write(p []byte) (int, error) {
	u.wmu.Lock()
	defer u.wmu.Unlock()
	n, err := u.port.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "serial write")
	}
	return n, nil
}

// Done is closed once the port stops delivering input
func (u *UART) Done() <-chan struct{} {
	return u.done
}

// Err returns the read error that ended input, or nil after a clean EOF
func (u *UART) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Close closes the port
func (u *UART) Close() error {
	return u.port.Close()
}
