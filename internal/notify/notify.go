package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/reqlog"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

const sendTimeout = 10 * time.Second

// Send posts message as text/plain to an ntfy-style endpoint.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// FailureMessage renders a one-line notification for a failed request.
func FailureMessage(rec types.RequestRecord) string {
	head := fmt.Sprintf("%s %s %s failed", strings.ToUpper(string(rec.Type)), rec.Method, rec.URL)
	if rec.Duration != nil {
		head += fmt.Sprintf(" after %dms", *rec.Duration)
	}
	return head + ": " + rec.Error
}

// Notifier posts a message for every record that settles as an error.
// Messages are queued and sent by one worker; when the queue is full the
// message is dropped.
type Notifier struct {
	client   *http.Client
	endpoint string

	queue     chan string
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	dropped   atomic.Int64
}

func NewNotifier(client *http.Client, endpoint string, bufferSize int) *Notifier {
	if bufferSize < 1 {
		bufferSize = 1
	}
	n := &Notifier{
		client:   client,
		endpoint: endpoint,
		queue:    make(chan string, bufferSize),
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// OnChange has the signature of a reqlog.Store observer.
func (n *Notifier) OnChange(c reqlog.Change) {
	if c.Kind != reqlog.ChangeUpdate || c.Record.Status != types.StatusError {
		return
	}
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.queue <- FailureMessage(c.Record):
	default:
		n.dropped.Add(1)
	}
}

// Dropped returns how many messages were discarded on a full queue.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

// Close stops accepting messages and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.done) })
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case msg := <-n.queue:
			n.send(msg)
		case <-n.done:
			for {
				select {
				case msg := <-n.queue:
					n.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := Send(ctx, n.client, n.endpoint, msg); err != nil {
		slog.Warn("Failure notification not sent", "endpoint", n.endpoint, "error", err)
	}
}
