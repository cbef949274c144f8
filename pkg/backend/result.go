package backend

import (
	"github.com/parkingwang/flowprobe/pkg/oas"
)

// 执行状态
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusPartial = "PARTIAL"
)

// ExecutionResult 执行结果 保留后端返回的全部字段
type ExecutionResult struct {
	raw *oas.Object
}

func NewExecutionResult(raw *oas.Object) *ExecutionResult {
	if raw == nil {
		raw = oas.NewObject()
	}
	return &ExecutionResult{raw: raw}
}

func (r *ExecutionResult) get(key string) any {
	v, _ := r.raw.Get(key)
	return v
}

func (r *ExecutionResult) Status() string      { return oas.String(r.get("status")) }
func (r *ExecutionResult) ProcessID() string   { return oas.String(r.get("processId")) }
func (r *ExecutionResult) ProcessName() string { return oas.String(r.get("processName")) }

func (r *ExecutionResult) DurationMs() int64 {
	n, _ := oas.Number(r.get("totalDurationMs"))
	return int64(n)
}

// Steps 执行步骤数
func (r *ExecutionResult) Steps() int {
	steps, _ := r.get("steps").([]any)
	return len(steps)
}

// FailedSteps 状态不是 SUCCESS 的步骤数
func (r *ExecutionResult) FailedSteps() int {
	steps, _ := r.get("steps").([]any)
	n := 0
	for _, s := range steps {
		o, ok := s.(*oas.Object)
		if !ok {
			continue
		}
		if v, _ := o.Get("status"); oas.String(v) != StatusSuccess {
			n++
		}
	}
	return n
}

func (r *ExecutionResult) Raw() *oas.Object {
	return r.raw
}

func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	return r.raw.MarshalJSON()
}

func (r *ExecutionResult) UnmarshalJSON(b []byte) error {
	var o oas.Object
	if err := o.UnmarshalJSON(b); err != nil {
		return err
	}
	r.raw = &o
	return nil
}
