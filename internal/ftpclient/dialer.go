package ftpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/textproto"
	"time"

	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/jlaffaye/ftp"
)

// ErrMLSDUnsupported is returned when the server cannot list with MLSD
var ErrMLSDUnsupported = errors.New("server does not support MLSD listings")

// Dialer opens sessions
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Session, error)
}

// Options configures a ServerDialer
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	// DebugOutput receives the raw control-connection traffic
	DebugOutput io.Writer
	Logger      logging.Logger
}

// ServerDialer dials real FTP servers with retries
type ServerDialer struct {
	opts    Options
	logger  logging.Logger
	connect func(ctx context.Context, ep Endpoint) (Session, error)
}

func NewDialer(opts Options) *ServerDialer {
	if opts.Timeout <= 0 {
		opts.Timeout = utils.DefaultConnectTimeout
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Duration(utils.DefaultRetryDelayMs) * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	d := &ServerDialer{opts: opts, logger: logger}
	d.connect = d.dialOnce
	return d
}

// Dial connects and logs in, retrying transient failures with exponential
// backoff. Rejected credentials and missing MLSD support are returned at once.
func (d *ServerDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	var lastErr error

	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Warn("Retrying FTP connection",
				logging.F("address", ep.Address()),
				logging.F("attempt", attempt),
				logging.F("maxRetries", d.opts.MaxRetries),
			)
		}

		session, err := d.connect(ctx, ep)
		if err == nil {
			d.logger.Debug("FTP session established",
				logging.F("address", ep.Address()),
				logging.F("attempts", attempt+1),
			)
			return session, nil
		}
		lastErr = err

		if !isRetryable(ctx, err) {
			return nil, err
		}

		if attempt < d.opts.MaxRetries {
			delay := calculateBackoff(d.opts.RetryBaseDelay, attempt)
			d.logger.Warn("FTP connection failed (retryable)",
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, lastErr
}

func (d *ServerDialer) dialOnce(ctx context.Context, ep Endpoint) (Session, error) {
	options := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(d.opts.Timeout),
		ftp.DialWithLocation(time.UTC),
	}
	if d.opts.DebugOutput != nil {
		options = append(options, ftp.DialWithDebugOutput(d.opts.DebugOutput))
	}

	conn, err := ftp.Dial(ep.Address(), options...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", ep.Address(), err)
	}

	if err := conn.Login(ep.Username, ep.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("login as %s: %w", ep.Username, err)
	}

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("set binary mode: %w", err)
	}

	if !conn.IsTimePreciseInList() {
		_ = conn.Quit()
		return nil, ErrMLSDUnsupported
	}

	return &serverSession{conn: conn}, nil
}

// IsAuthRejected reports whether err is a 530 reply to the login
func IsAuthRejected(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code == ftp.StatusNotLoggedIn
	}
	return false
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if IsAuthRejected(err) || errors.Is(err, ErrMLSDUnsupported) {
		return false
	}
	return true
}

// calculateBackoff returns base * 2^attempt with +/-25% jitter, capped
func calculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}

	jitterRange := delay / 4
	if jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
		delay += jitter
	}

	if delay < 0 {
		delay = baseDelay
	}
	return delay
}
