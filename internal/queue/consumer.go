package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// Sender delivers a notification to the booking owner, usually by email.
type Sender interface {
    Send(ctx context.Context, n model.Notification) error
}

const (
    consumerPrefetch = 50
    maxDialBackoff   = 30 * time.Second
    bookingLogFile   = "booking.log"
)

// Consumer listens on the booking.confirmed and booking.canceled queues.
// Every message is appended to <logDir>/booking.log in a single-line,
// human-friendly format and, when a Sender is configured and the booking
// has an owner email, mailed to the owner.
type Consumer struct {
    url    string
    queues []string
    sender Sender
    logDir string
    log    logrus.FieldLogger

    mu sync.Mutex // serializes writes to the log file
}

// NewConsumer returns a consumer for the broker at url. sender may be nil,
// in which case messages are only logged.
func NewConsumer(url string, sender Sender, logDir string, log logrus.FieldLogger) *Consumer {
    if url == "" {
        url = DefaultURL
    }
    if logDir == "" {
        logDir = "logs"
    }
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &Consumer{
        url:    url,
        queues: []string{BookingConfirmedQueue, BookingCanceledQueue},
        sender: sender,
        logDir: logDir,
        log:    log.WithField("component", "booking-consumer"),
    }
}

// Run connects to the broker and consumes until ctx is canceled. Dial
// failures and dropped connections are retried with exponential backoff,
// so the server keeps running while the broker is away.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return nil
            }
            if backoff < maxDialBackoff {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        c.log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
        c.log.WithError(err).Warn("set QoS failed")
    }

    g, gctx := errgroup.WithContext(ctx)
    for _, name := range c.queues {
        name := name
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        g.Go(func() error { return c.drain(gctx, name, msgs) })
    }
    return g.Wait()
}

func (c *Consumer) drain(ctx context.Context, queueName string, msgs <-chan amqp.Delivery) error {
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return fmt.Errorf("%s: %w", queueName, errDeliveriesClosed)
            }
            if err := c.Handle(ctx, d.Body); err != nil {
                c.log.WithError(err).WithField("queue", queueName).Error("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

var errDeliveriesClosed = errors.New("deliveries channel closed")

// Handle processes one message body. The log line is written first so a
// failed email still leaves a record.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    n, err := ev.Notification()
    if err != nil {
        return err
    }
    if err := c.appendLog(n); err != nil {
        return err
    }
    if c.sender == nil || n.OwnerEmail == "" {
        return nil
    }
    if err := c.sender.Send(ctx, n); err != nil {
        return fmt.Errorf("send %s email: %w", n.Kind, err)
    }
    return nil
}

func (c *Consumer) appendLog(n model.Notification) error {
    c.mu.Lock()
    defer c.mu.Unlock()

    // Ensure logs directory exists
    if err := os.MkdirAll(c.logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.logDir, bookingLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLogLine(n)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLogLine renders n as one booking.log line, newline included.
func FormatLogLine(n model.Notification) string {
    verb := "Booking confirmed"
    if n.Kind == model.NotificationBookingCanceled {
        verb = "Booking canceled"
    }
    return fmt.Sprintf("[%s] %s | booking_id=%s | code=%s | owner_id=%s | event_id=%s | ticket_type=%q | quantity=%d | total=%d cents\n",
        n.OccurredAt.UTC().Format(time.RFC3339), verb, n.BookingID, n.Code, n.OwnerID, n.EventID, n.TicketType, n.Quantity, n.TotalAmountCents)
}
