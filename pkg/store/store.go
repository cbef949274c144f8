// Package store 上传文档缓存和运行记录的存储
//
// 未配置 redis/database 时使用 memory 包中的实现
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// DocumentID 文档内容的哈希 相同内容得到相同的id
func DocumentID(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

// RunKind 运行记录类型
type RunKind string

const (
	RunMapping         RunKind = "mapping"
	RunRecommendations RunKind = "recommendations"
	RunGeneration      RunKind = "generation"
	RunExecution       RunKind = "execution"
)

// Run 一次映射/生成/执行的记录
type Run struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Kind         RunKind   `json:"kind" gorm:"size:32;index"`
	DocumentID   string    `json:"documentId,omitempty" gorm:"size:32"`
	ProcessName  string    `json:"processName,omitempty" gorm:"size:255"`
	Status       string    `json:"status,omitempty" gorm:"size:32"`
	TotalTasks   int       `json:"totalTasks"`
	MatchedTasks int       `json:"matchedTasks"`
	Confidence   float64   `json:"confidence"`
	DurationMs   int64     `json:"durationMs"`
	Payload      string    `json:"-" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
}

func (Run) TableName() string {
	return "flowprobe_runs"
}

// KindStats 按类型聚合的统计
type KindStats struct {
	Kind       RunKind `json:"kind"`
	Runs       int64   `json:"runs"`
	Confidence float64 `json:"avgConfidence"`
	Failed     int64   `json:"failed"`
}

// Filter 查询条件 Limit<=0 时使用默认值
type Filter struct {
	Kind  RunKind
	Limit int
}

const DefaultLimit = 50

func (f Filter) LimitOrDefault() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return DefaultLimit
	}
	return f.Limit
}

// Documents 上传文档缓存
type Documents interface {
	Put(ctx context.Context, raw []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

// Runs 运行记录
type Runs interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, f Filter) ([]Run, error)
	Stats(ctx context.Context) ([]KindStats, error)
}

// FailedStatus reports whether status marks a failed run.
func FailedStatus(status string) bool {
	return status == "FAILED" || status == "PARTIAL" || status == "ERROR"
}
