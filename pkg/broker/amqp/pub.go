package amqp

import (
	"context"
	"errors"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var ErrStopped = errors.New("amqp: publisher stopped")

// Pub 消息发布 断线自动重连
// Start 之前发布的消息会在连接建立后发送
type Pub struct {
	msg    chan *pubChanData
	opt    *option
	tracer trace.Tracer

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewPub(opts ...Option) *Pub {
	opt := defaultOption()
	for _, v := range opts {
		v(opt)
	}
	return &Pub{
		msg:    make(chan *pubChanData, opt.buffer),
		opt:    opt,
		tracer: otel.Tracer("flowprobe/amqp"),
		done:   make(chan struct{}),
	}
}

func (p *Pub) Start(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go func() {
		defer close(p.done)
		(&client{dsn: p.opt.dsn}).runloop(ctx, p.opt.reconnect, p.loopHandle)
	}()
	return nil
}

// Stop 停止发送 等待当前消息发送完成
func (p *Pub) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.once.Do(p.cancel)
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pub) loopHandle(ctx context.Context, s *session, serr error) {
	if serr != nil {
		p.opt.err(serr)
		return
	}
	if err := p.opt.apply(s.ch); err != nil {
		p.opt.err(err)
		return
	}
	closed := s.conn.NotifyClose(make(chan *amqp091.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-closed:
			if err != nil {
				p.opt.err(err)
			}
			return
		case msg := <-p.msg:
			err := s.ch.PublishWithContext(
				msg.ctx, msg.exchange, msg.key, false, false, msg.data,
			)
			msg.errchan <- err
			if errors.Is(err, amqp091.ErrClosed) {
				return
			}
		}
	}
}

type pubChanData struct {
	ctx      context.Context
	exchange string
	key      string
	data     amqp091.Publishing
	errchan  chan error
}

func (p *Pub) PublishMsg(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
	if msg.Headers == nil {
		msg.Headers = make(amqp091.Table)
	}
	ctx, span := p.tracer.Start(ctx, "amqp.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			attribute.String("messaging.rabbitmq.routing_key", key),
		),
	)
	defer span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers[k] = v
	}

	m := &pubChanData{
		ctx:      ctx,
		exchange: exchange,
		key:      key,
		data:     msg,
		errchan:  make(chan error, 1),
	}
	var err error
	select {
	case p.msg <- m:
		select {
		case err = <-m.errchan:
		case <-ctx.Done():
			err = ctx.Err()
		case <-p.done:
			err = ErrStopped
		}
	case <-ctx.Done():
		err = ctx.Err()
	case <-p.done:
		err = ErrStopped
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (p *Pub) Publish(ctx context.Context, exchange, key string, data []byte) error {
	return p.PublishMsg(ctx, exchange, key, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
	})
}
