package console

import (
	"context"
	"encoding/json"

	"github.com/parkingwang/flowprobe/pkg/http/web"
	"github.com/parkingwang/flowprobe/pkg/store"
)

type ListRunsRequest struct {
	Kind  string `form:"kind" binding:"omitempty,oneof=mapping recommendations generation execution"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

type ListRunsResponse struct {
	Runs []store.Run `json:"runs"`
}

// ListRuns 按时间倒序
func (c *Console) ListRuns(ctx context.Context, in *ListRunsRequest) (*ListRunsResponse, error) {
	runs, err := c.runs.List(ctx, store.Filter{Kind: store.RunKind(in.Kind), Limit: in.Limit})
	if err != nil {
		return nil, err
	}
	return &ListRunsResponse{Runs: runs}, nil
}

type RunRequest struct {
	ID string `uri:"id" binding:"required"`
}

type RunDetail struct {
	store.Run
	// 后端返回的原始结果
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c *Console) GetRun(ctx context.Context, in *RunRequest) (*RunDetail, error) {
	run, err := c.runs.Get(ctx, in.ID)
	if err != nil {
		return nil, storeError(err, "run "+in.ID)
	}
	d := &RunDetail{Run: *run}
	if run.Payload != "" {
		d.Payload = json.RawMessage(run.Payload)
	}
	return d, nil
}

type StatsResponse struct {
	Kinds []store.KindStats `json:"kinds"`
	Total int64             `json:"total"`
}

func (c *Console) Stats(ctx context.Context, _ *web.Empty) (*StatsResponse, error) {
	kinds, err := c.runs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{Kinds: kinds}
	for _, k := range kinds {
		resp.Total += k.Runs
	}
	return resp, nil
}
