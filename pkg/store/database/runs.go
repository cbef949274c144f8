package database

import (
	"context"
	"errors"

	"github.com/parkingwang/flowprobe/pkg/store"
	"gorm.io/gorm"
)

// Runs 运行记录 表结构见 store.Run
type Runs struct {
	db *gorm.DB
}

var _ store.Runs = (*Runs)(nil)

func NewRuns(db *gorm.DB) *Runs {
	return &Runs{db: db}
}

// Migrate 创建或更新表结构
func (r *Runs) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&store.Run{})
}

func (r *Runs) Save(ctx context.Context, run *store.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Runs) Get(ctx context.Context, id string) (*store.Run, error) {
	var run store.Run
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Runs) List(ctx context.Context, f store.Filter) ([]store.Run, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(f.LimitOrDefault())
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	runs := make([]store.Run, 0)
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *Runs) Stats(ctx context.Context) ([]store.KindStats, error) {
	out := make([]store.KindStats, 0)
	err := r.db.WithContext(ctx).Model(&store.Run{}).
		Select("kind, COUNT(*) AS runs, AVG(confidence) AS confidence, "+
			"SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS failed", failedStatuses).
		Group("kind").
		Order("kind").
		Scan(&out).Error
	return out, err
}

var failedStatuses = []string{"FAILED", "PARTIAL", "ERROR"}
