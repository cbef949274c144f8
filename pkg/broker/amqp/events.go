package amqp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parkingwang/flowprobe/pkg/store"
)

const EventRunRecorded = "run.recorded"

// Publisher 发布接口 便于测试替换
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, data []byte) error
}

// RunEvent 消息体
type RunEvent struct {
	Event string     `json:"event"`
	Run   *store.Run `json:"run"`
	// 生成事件的时间
	Time time.Time `json:"time"`
}

// RunEvents 每条运行记录发布一条 run.recorded 消息
type RunEvents struct {
	pub      Publisher
	exchange string
	timeout  time.Duration
	now      func() time.Time
}

func NewRunEvents(pub Publisher, exchange string, timeout time.Duration) *RunEvents {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RunEvents{pub: pub, exchange: exchange, timeout: timeout, now: time.Now}
}

// Notify routing key 为 run.recorded.<kind>
func (e *RunEvents) Notify(ctx context.Context, run *store.Run) error {
	data, err := json.Marshal(&RunEvent{Event: EventRunRecorded, Run: run, Time: e.now()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.pub.Publish(ctx, e.exchange, EventRunRecorded+"."+string(run.Kind), data)
}

// Discard 未配置 broker 时使用
type Discard struct{}

func (Discard) Notify(context.Context, *store.Run) error { return nil }
