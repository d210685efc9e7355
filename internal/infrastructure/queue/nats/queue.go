package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/resilience"
)

const (
	defaultQueueGroup = "theo-workers"
	drainTimeout      = 5 * time.Minute
)

// Conn is a NATS connection carrying pipeline requests on one subject.
type Conn struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func Connect(url, subject string) (*Conn, error) {
	return ConnectWithOptions(url, subject, Options{})
}

func ConnectWithOptions(url, subject string, options Options) (*Conn, error) {
	name := options.Name
	if name == "" {
		name = "theo"
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", errString(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Conn{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (c *Conn) Subject() string {
	return c.subject
}

func (c *Conn) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PipelineClient runs the report pipeline remotely through request/reply.
type PipelineClient struct {
	conn *Conn
}

var _ ports.ReportProcessor = (*PipelineClient)(nil)

func NewPipelineClient(conn *Conn) *PipelineClient {
	return &PipelineClient{conn: conn}
}

// ProcessReport blocks until a worker replies or ctx ends. A context without a
// deadline gets the client default so a lost worker cannot hang the caller.
func (c *PipelineClient) ProcessReport(ctx context.Context, reportText string) (*domain.AggregateResult, error) {
	payload, err := encodeRequest(reportText)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	var reply *nats.Msg
	call := func(callCtx context.Context) error {
		msg, reqErr := c.conn.conn.RequestWithContext(callCtx, c.conn.subject, payload)
		if reqErr != nil {
			return fmt.Errorf("nats request: %w", reqErr)
		}
		reply = msg
		return nil
	}
	if c.conn.executor != nil {
		err = c.conn.executor.Execute(ctx, "nats.request", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(err)
	}
	return decodeReply(reply.Data)
}

// RequestObserver is notified around every served request.
type RequestObserver interface {
	StartRequest()
	FinishRequest(service string, duration time.Duration, err error)
}

// PipelineServer answers pipeline requests as a member of a queue group.
type PipelineServer struct {
	conn        *Conn
	processor   ports.ReportProcessor
	queueGroup  string
	service     string
	concurrency int
	observer    RequestObserver
}

type ServerOptions struct {
	QueueGroup  string
	Service     string
	Concurrency int
	Observer    RequestObserver
}

func NewPipelineServer(conn *Conn, processor ports.ReportProcessor, options ServerOptions) *PipelineServer {
	group := options.QueueGroup
	if group == "" {
		group = defaultQueueGroup
	}
	service := options.Service
	if service == "" {
		service = "theo-worker"
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &PipelineServer{
		conn:        conn,
		processor:   processor,
		queueGroup:  group,
		service:     service,
		concurrency: concurrency,
		observer:    options.Observer,
	}
}

// Serve subscribes and blocks until ctx is cancelled. Messages already
// delivered to the subscription are still processed and answered while it drains.
func (s *PipelineServer) Serve(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	sub, err := s.conn.conn.QueueSubscribe(s.conn.subject, s.queueGroup, func(msg *nats.Msg) {
		g.Go(func() error {
			s.handle(ctx, msg.Data, replier(msg))
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := s.conn.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("worker_subscribed", "subject", s.conn.subject, "queue_group", s.queueGroup)

	<-ctx.Done()
	slog.Info("worker_draining", "subject", s.conn.subject)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	select {
	case <-closed:
	case <-time.After(drainTimeout):
		slog.Warn("worker_drain_timeout", "timeout", drainTimeout.String())
	}
	_ = g.Wait()
	if err := s.conn.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// replier answers a request message; nil when the publisher expects no reply.
func replier(msg *nats.Msg) func([]byte) error {
	if msg.Reply == "" {
		return nil
	}
	return msg.Respond
}

func (s *PipelineServer) handle(ctx context.Context, data []byte, reply func([]byte) error) {
	started := time.Now()
	if s.observer != nil {
		s.observer.StartRequest()
	}

	result, err := s.process(context.WithoutCancel(ctx), data)
	if s.observer != nil {
		s.observer.FinishRequest(s.service, time.Since(started), err)
	}
	if err != nil {
		slog.Warn("worker_request_failed", "error_kind", domain.KindName(err), "error", err.Error())
	}

	if reply == nil {
		return
	}
	if respondErr := reply(encodeReply(result, err)); respondErr != nil {
		slog.Warn("worker_reply_failed", "error", respondErr.Error())
	}
}

func (s *PipelineServer) process(ctx context.Context, data []byte) (*domain.AggregateResult, error) {
	reportText, err := decodeRequest(data)
	if err != nil {
		return nil, err
	}
	return s.processor.ProcessReport(ctx, reportText)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
