package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/parkingwang/flowprobe/pkg/backend"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/http/web"
	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"github.com/parkingwang/flowprobe/pkg/store"
	"github.com/parkingwang/flowprobe/pkg/store/memory"
)

const apiDoc = `openapi: 3.0.0
info:
  title: Bank
paths:
  /clients/{id}:
    get:
      parameters:
        - {name: id, in: path, required: true, schema: {type: string}}
    delete: {}
  /clients:
    post:
      operationId: createClient
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [fullName]
              properties:
                fullName: {type: string}
  /health: {}
`

const mappingJSON = `{"taskMappings": {
  "Task_1": {"taskName": "Create client", "endpointMethod": "POST", "endpointPath": "/clients"},
  "Task_2": {"taskName": "Load client", "endpointPath": "/clients/7"}
}, "overallConfidence": 0.8, "totalTasks": 2, "matchedTasks": 2}`

type fakeBackend struct {
	mu       sync.Mutex
	openAPI  string
	generate *backend.GenerateRequest
	execute  *backend.ExecuteRequest
	err      error
}

func (f *fakeBackend) Map(_ context.Context, bpmn, doc string) (*mapping.MappingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.openAPI = doc
	return mapping.ParseMappingResult([]byte(mappingJSON))
}

func (f *fakeBackend) Recommendations(_ context.Context, bpmn, doc string) (*oas.Object, error) {
	o := oas.NewObject()
	o.Set("recommendations", []any{})
	return o, f.err
}

func (f *fakeBackend) Generate(_ context.Context, req *backend.GenerateRequest) (*oas.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generate = req
	o := oas.NewObject()
	o.Set("variants", []any{})
	return o, f.err
}

func (f *fakeBackend) ExecuteSimple(_ context.Context, req *backend.ExecuteRequest) (*backend.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execute = req
	raw, _ := oas.Decode([]byte(`{"status": "PARTIAL", "processName": "Onboarding", "totalDurationMs": 900, "steps": [{"status": "SUCCESS"}, {"status": "FAILED"}]}`))
	return backend.NewExecutionResult(raw.(*oas.Object)), f.err
}

type notifier struct {
	runs chan store.Run
}

func (n *notifier) Notify(_ context.Context, run *store.Run) error {
	n.runs <- *run
	return nil
}

type fixture struct {
	t       *testing.T
	srv     *web.Server
	backend *fakeBackend
	events  *notifier
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:       t,
		srv:     web.New(web.WithRouteOutput(nil)),
		backend: &fakeBackend{},
		events:  &notifier{runs: make(chan store.Run, 16)},
	}
	c := New(memory.NewDocuments(time.Hour), memory.NewRuns(100), f.backend, f.events)
	c.Register(f.srv.Router())
	return f
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)
	return w
}

func (f *fixture) json(method, target string, in any, status int, out any) {
	f.t.Helper()
	var body string
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			f.t.Fatal(err)
		}
		body = string(b)
	}
	w := f.do(method, target, "application/json", body)
	if w.Code != status {
		f.t.Fatalf("%s %s: want %d, got %d %s", method, target, status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			f.t.Fatal(err)
		}
	}
}

func (f *fixture) upload() string {
	var doc DocumentResponse
	f.json(http.MethodPost, "/api/documents", UploadRequest{Content: apiDoc}, http.StatusOK, &doc)
	return doc.ID
}

func (f *fixture) event() store.Run {
	f.t.Helper()
	select {
	case run := <-f.events.runs:
		return run
	case <-time.After(time.Second):
		f.t.Fatal("run event not published")
	}
	return store.Run{}
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t)
	var doc DocumentResponse
	f.json(http.MethodPost, "/api/documents", UploadRequest{Content: apiDoc}, http.StatusOK, &doc)
	want := []PathSummary{
		{Template: "/clients/{id}", Methods: []string{"get", "delete"}},
		{Template: "/clients", Methods: []string{"post"}},
		{Template: "/health", Methods: []string{}},
	}
	if diff := cmp.Diff(want, doc.Paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
	if doc.Title != "Bank" || doc.Version != "3.0.0" || doc.ID != store.DocumentID([]byte(apiDoc)) {
		t.Fatalf("unexpected document %+v", doc)
	}

	var paths PathsResponse
	f.json(http.MethodGet, "/api/documents/"+doc.ID+"/paths", nil, http.StatusOK, &paths)
	if diff := cmp.Diff(want, paths.Paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}

	f.json(http.MethodPost, "/api/documents", UploadRequest{Content: "- just\n- a list"}, http.StatusUnprocessableEntity, nil)
	f.json(http.MethodPost, "/api/documents", UploadRequest{}, http.StatusBadRequest, nil)
	f.json(http.MethodGet, "/api/documents/unknown/paths", nil, http.StatusNotFound, nil)
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	id := f.upload()
	target := "/api/documents/" + id + "/resolve"

	var got struct {
		Template    string `json:"template"`
		Method      string `json:"method"`
		OperationID string `json:"operationId"`
		Schema      struct {
			Parameters  []oas.ParameterSpec `json:"parameters"`
			RequestBody map[string]any      `json:"requestBody"`
		} `json:"schema"`
	}
	task := map[string]any{"task": map[string]any{"method": "post", "endpointMethod": "GET", "path": "/clients"}}
	f.json(http.MethodPost, target, task, http.StatusOK, &got)
	if got.Template != "/clients" || got.Method != "post" || got.OperationID != "createClient" {
		t.Fatalf("unexpected resolution %+v", got)
	}
	if got.Schema.RequestBody["mediaType"] != "application/json" || got.Schema.RequestBody["requiredProps"] == nil {
		t.Fatalf("unexpected body %+v", got.Schema.RequestBody)
	}

	task = map[string]any{"task": map[string]any{"endpoint_path": "/clients/42"}}
	f.json(http.MethodPost, target, task, http.StatusOK, &got)
	if got.Template != "/clients/{id}" || got.Method != "get" || len(got.Schema.Parameters) != 1 || got.Schema.RequestBody != nil {
		t.Fatalf("unexpected resolution %+v", got)
	}

	for _, miss := range []map[string]any{
		{"endpointMethod": "PUT", "endpointPath": "/clients"},
		{"endpointPath": "/clients/42/accounts"},
	} {
		f.json(http.MethodPost, target, map[string]any{"task": miss}, http.StatusNotFound, nil)
	}
	f.json(http.MethodPost, target, map[string]any{}, http.StatusBadRequest, nil)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	id := f.upload()
	result, err := mapping.ParseMappingResult([]byte(mappingJSON))
	if err != nil {
		t.Fatal(err)
	}

	var p mapping.GenerationPreview
	f.json(http.MethodPost, "/api/preview", PreviewRequest{
		DocumentSource: DocumentSource{DocumentID: id},
		PreviewOptions: mapping.PreviewOptions{GenerationType: "CLASSIC", VariantsCount: 1},
		MappingResult:  result,
	}, http.StatusOK, &p)
	tasks := p.Variants[0]
	if len(tasks) != 2 || p.GenerationType != "CLASSIC" {
		t.Fatalf("unexpected preview %+v", p)
	}
	want := []mapping.FieldHint{{Name: "fullName", Type: "string", Required: true}}
	if diff := cmp.Diff(want, tasks[0].RequiredFields.Body); diff != "" {
		t.Fatalf("body (-want +got):\n%s", diff)
	}

	// 内联文档无法解析时没有字段提示
	var empty mapping.GenerationPreview
	f.json(http.MethodPost, "/api/preview", PreviewRequest{
		DocumentSource: DocumentSource{OpenAPIJSON: "{broken"},
		MappingResult:  result,
	}, http.StatusOK, &empty)
	for _, task := range empty.Variants[0] {
		if len(task.RequiredFields.Parameters) != 0 || task.RequiredFields.Body != nil {
			t.Fatalf("want empty hints, got %+v", task.RequiredFields)
		}
	}

	f.json(http.MethodPost, "/api/preview", PreviewRequest{
		DocumentSource: DocumentSource{DocumentID: "missing"},
		MappingResult:  result,
	}, http.StatusNotFound, nil)
}

func TestMapRecordsRun(t *testing.T) {
	f := newFixture(t)
	id := f.upload()

	form := url.Values{"bpmnXml": {"<definitions/>"}, "documentId": {id}}
	w := f.do(http.MethodPost, "/api/mapping/map", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("map: %d %s", w.Code, w.Body.String())
	}
	if f.backend.openAPI != apiDoc {
		t.Fatal("stored document must be forwarded")
	}
	ev := f.event()
	if ev.Kind != store.RunMapping || ev.TotalTasks != 2 || ev.Confidence != 0.8 || ev.DocumentID != id {
		t.Fatalf("unexpected run %+v", ev)
	}

	var list ListRunsResponse
	f.json(http.MethodGet, "/api/runs?kind=mapping", nil, http.StatusOK, &list)
	if len(list.Runs) != 1 || list.Runs[0].ID != ev.ID {
		t.Fatalf("unexpected runs %+v", list.Runs)
	}
	var detail struct {
		ID      string         `json:"id"`
		Payload map[string]any `json:"payload"`
	}
	f.json(http.MethodGet, "/api/runs/"+ev.ID, nil, http.StatusOK, &detail)
	if detail.ID != ev.ID || detail.Payload["taskMappings"] == nil {
		t.Fatalf("unexpected detail %+v", detail)
	}
	f.json(http.MethodGet, "/api/runs/unknown", nil, http.StatusNotFound, nil)
	f.json(http.MethodGet, "/api/runs?kind=bogus", nil, http.StatusBadRequest, nil)

	w = f.do(http.MethodPost, "/api/mapping/map", "application/x-www-form-urlencoded", url.Values{"bpmnXml": {"x"}}.Encode())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without document, got %d", w.Code)
	}
}

func TestBackendErrorPassThrough(t *testing.T) {
	f := newFixture(t)
	f.backend.err = code.NewCodeError(http.StatusUnprocessableEntity, "bpmn has no tasks")
	form := url.Values{"bpmnXml": {"x"}, "openApiJson": {"{}"}}
	w := f.do(http.MethodPost, "/api/mapping/map", "application/x-www-form-urlencoded", form.Encode())
	var resp web.DefaultErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusUnprocessableEntity || resp.Message != "bpmn has no tasks" {
		t.Fatalf("unexpected %d %+v", w.Code, resp)
	}

	f.backend.err = code.NewBadGatewayError("backend down")
	w = f.do(http.MethodPost, "/api/mapping/recommendations", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d", w.Code)
	}
}

func TestGenerateAppliesOverrides(t *testing.T) {
	f := newFixture(t)
	id := f.upload()
	body := `{"documentId": "` + id + `", "generationType": "AI", "scenario": "negative", "variantsCount": 2,
"mappingResult": ` + mappingJSON + `,
"overrides": {"Task_1": {"fullName": "Иванов"}, "Task_9": {"x": 1}}}`
	w := f.do(http.MethodPost, "/api/generator/generate", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	req := f.backend.generate
	if req.GenerationType != "AI" || req.Scenario != "negative" || req.VariantsCount != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	if v, _ := req.OpenAPIModel.Get("openapi"); v != "3.0.0" {
		t.Fatalf("document model missing: %v", v)
	}
	task, _ := req.MappingResult.Task("Task_1")
	if v, _ := task.CustomRequestData().Get("fullName"); v != "Иванов" {
		t.Fatalf("override missing: %v", v)
	}
	if _, ok := req.MappingResult.Task("Task_9"); ok {
		t.Fatal("unknown task must be ignored")
	}
	if ev := f.event(); ev.Kind != store.RunGeneration || ev.TotalTasks != 2 {
		t.Fatalf("unexpected run %+v", ev)
	}

	bad := `{"mappingResult": {}, "overrides": {"Task_1": [1, 2]}}`
	if w := f.do(http.MethodPost, "/api/generator/generate", "application/json", bad); w.Code != http.StatusBadRequest {
		t.Fatalf("non-object override must be rejected, got %d", w.Code)
	}
}

func TestExecuteAndStats(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"bpmnXml":           {"<definitions/>"},
		"openApiJson":       {"{}"},
		"testDataJson":      {"{}"},
		"mappingResultJson": {"{}"},
		"baseUrl":           {"http://target"},
		"variantIndex":      {"1"},
		"stopOnFirstError":  {"true"},
	}
	w := f.do(http.MethodPost, "/api/execution/execute-simple", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("execute: %d %s", w.Code, w.Body.String())
	}
	if req := f.backend.execute; req.BaseURL != "http://target" || req.VariantIndex != 1 || !req.StopOnFirstError {
		t.Fatalf("unexpected request %+v", req)
	}
	ev := f.event()
	if ev.Status != backend.StatusPartial || ev.ProcessName != "Onboarding" || ev.TotalTasks != 2 || ev.MatchedTasks != 1 {
		t.Fatalf("unexpected run %+v", ev)
	}

	delete(form, "baseUrl")
	w = f.do(http.MethodPost, "/api/execution/execute-simple", "application/x-www-form-urlencoded", form.Encode())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without baseUrl, got %d", w.Code)
	}

	var stats StatsResponse
	f.json(http.MethodGet, "/api/stats", nil, http.StatusOK, &stats)
	want := StatsResponse{
		Kinds: []store.KindStats{{Kind: store.RunExecution, Runs: 1, Failed: 1}},
		Total: 1,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats (-want +got):\n%s", diff)
	}
}
