package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQuery 超过该时间的语句记录warn日志
const slowQuery = 200 * time.Millisecond

// queryLogger 只记录失败和慢查询 其余由trace记录
type queryLogger struct{}

func (l *queryLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l *queryLogger) Info(ctx context.Context, s string, v ...any) {
	slog.DebugContext(ctx, fmt.Sprintf(s, v...))
}

func (l *queryLogger) Warn(ctx context.Context, s string, v ...any) {
	slog.WarnContext(ctx, fmt.Sprintf(s, v...))
}

func (l *queryLogger) Error(ctx context.Context, s string, v ...any) {
	slog.ErrorContext(ctx, fmt.Sprintf(s, v...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		slog.ErrorContext(ctx, "sql failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > slowQuery:
		sql, rows := fc()
		slog.WarnContext(ctx, "slow sql", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
