// Package memory 进程内存储 未配置外部存储时使用 重启后数据丢失
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parkingwang/flowprobe/pkg/store"
)

type entry struct {
	raw     []byte
	expires time.Time
}

// Documents 带过期时间的文档缓存 读取时刷新过期时间
type Documents struct {
	mu   sync.Mutex
	ttl  time.Duration
	docs map[string]entry
	now  func() time.Time
}

var _ store.Documents = (*Documents)(nil)

// NewDocuments ttl<=0 表示不过期
func NewDocuments(ttl time.Duration) *Documents {
	return &Documents{ttl: ttl, docs: make(map[string]entry), now: time.Now}
}

func (d *Documents) expired(e entry, now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

func (d *Documents) Put(_ context.Context, raw []byte) (string, error) {
	id := store.DocumentID(raw)
	e := entry{raw: append([]byte(nil), raw...)}
	now := d.now()
	if d.ttl > 0 {
		e.expires = now.Add(d.ttl)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// 清理没人再读取的过期文档
	for k, v := range d.docs {
		if d.expired(v, now) {
			delete(d.docs, k)
		}
	}
	d.docs[id] = e
	return id, nil
}

func (d *Documents) Get(_ context.Context, id string) ([]byte, error) {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.expired(e, now) {
		delete(d.docs, id)
		return nil, store.ErrNotFound
	}
	if d.ttl > 0 {
		e.expires = now.Add(d.ttl)
		d.docs[id] = e
	}
	return e.raw, nil
}

// Runs 运行记录 只保留最近 capacity 条
type Runs struct {
	mu       sync.RWMutex
	capacity int
	runs     []store.Run
}

var _ store.Runs = (*Runs)(nil)

func NewRuns(capacity int) *Runs {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Runs{capacity: capacity}
}

func (r *Runs) Save(_ context.Context, run *store.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	if n := len(r.runs) - r.capacity; n > 0 {
		r.runs = append([]store.Run(nil), r.runs[n:]...)
	}
	return nil
}

func (r *Runs) Get(_ context.Context, id string) (*store.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.runs {
		if r.runs[i].ID == id {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, store.ErrNotFound
}

// List 按创建时间倒序
func (r *Runs) List(_ context.Context, f store.Filter) ([]store.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]store.Run, 0)
	for i := len(r.runs) - 1; i >= 0; i-- {
		if f.Kind != "" && r.runs[i].Kind != f.Kind {
			continue
		}
		out = append(out, r.runs[i])
		if len(out) == f.LimitOrDefault() {
			break
		}
	}
	return out, nil
}

func (r *Runs) Stats(_ context.Context) ([]store.KindStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byKind := make(map[store.RunKind]*store.KindStats)
	sums := make(map[store.RunKind]float64)
	for _, run := range r.runs {
		s, ok := byKind[run.Kind]
		if !ok {
			s = &store.KindStats{Kind: run.Kind}
			byKind[run.Kind] = s
		}
		s.Runs++
		sums[run.Kind] += run.Confidence
		if store.FailedStatus(run.Status) {
			s.Failed++
		}
	}
	out := make([]store.KindStats, 0, len(byKind))
	for k, s := range byKind {
		s.Confidence = sums[k] / float64(s.Runs)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}
