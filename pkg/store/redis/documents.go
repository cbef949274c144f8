package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/parkingwang/flowprobe/pkg/store"
)

const keyPrefix = "flowprobe:doc:"

// Documents 上传的 OpenAPI 文档 以内容哈希为key
type Documents struct {
	c   redis.UniversalClient
	ttl time.Duration
}

var _ store.Documents = (*Documents)(nil)

// NewDocuments ttl 为0表示不过期 每次读取会刷新过期时间
func NewDocuments(c redis.UniversalClient, ttl time.Duration) *Documents {
	return &Documents{c: c, ttl: ttl}
}

func (d *Documents) Put(ctx context.Context, raw []byte) (string, error) {
	id := store.DocumentID(raw)
	if err := d.c.Set(ctx, keyPrefix+id, raw, d.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (d *Documents) Get(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	var err error
	if d.ttl > 0 {
		raw, err = d.c.GetEx(ctx, keyPrefix+id, d.ttl).Bytes()
	} else {
		raw, err = d.c.Get(ctx, keyPrefix+id).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	return raw, err
}
