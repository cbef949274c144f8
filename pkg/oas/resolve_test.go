package oas

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ordersDoc = `{
  "openapi": "3.0.1",
  "info": {"title": "orders", "version": "1"},
  "paths": {
    "/orders": {
      "post": {
        "operationId": "createOrder",
        "parameters": [
          {"name": "X-Request-Id", "in": "header", "required": true, "schema": {"type": "string"}}
        ],
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string", "description": "customer name"},
                  "amount": {"type": "number"}
                }
              }
            }
          }
        }
      }
    },
    "/orders/{id}": {
      "get": {
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "integer"}},
          {"name": "expand", "in": "query", "description": "embed lines"}
        ]
      },
      "put": {
        "requestBody": {
          "content": {
            "application/json": {"schema": {"$ref": "#/components/schemas/Order"}}
          }
        }
      }
    },
    "/orders/{id}/lines/{line}": {
      "delete": {}
    },
    "/orders/latest": {
      "get": {"operationId": "latestOrder"}
    }
  }
}`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(s))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestResolvePathExact(t *testing.T) {
	doc := mustParse(t, `{"paths": {"/a/b": {"get": {}}, "/a/{x}": {"get": {}}}}`)
	got, err := doc.ResolvePath(Target{Path: "/a/b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/a/b" {
		t.Fatalf("want /a/b, got %s", got)
	}
}

func TestResolvePathExactBeatsEarlierTemplate(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	// /orders/{id} 声明在前 但完全匹配优先
	got, err := doc.ResolvePath(Target{Path: "/orders/latest"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/orders/latest" {
		t.Fatalf("want /orders/latest, got %s", got)
	}
}

func TestResolvePathTemplate(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	cases := []struct {
		path string
		want string
		err  error
	}{
		{"/orders/42", "/orders/{id}", nil},
		{"/orders/42/lines/7", "/orders/{id}/lines/{line}", nil},
		{"/orders/42/extra", "", ErrNotFound},
		{"/orders/", "", ErrNotFound},
		{"/prefix/orders/42", "", ErrNotFound},
		{"", "", ErrNotFound},
	}
	for _, c := range cases {
		got, err := doc.ResolvePath(Target{Path: c.path})
		if !errors.Is(err, c.err) {
			t.Fatalf("%q: want err %v, got %v", c.path, c.err, err)
		}
		if got != c.want {
			t.Fatalf("%q: want %q, got %q", c.path, c.want, got)
		}
	}
}

func TestResolvePathFirstDeclaredWins(t *testing.T) {
	doc := mustParse(t, `
paths:
  /items/{b}:
    get: {}
  /items/{a}:
    get: {}
`)
	for i := 0; i < 10; i++ {
		got, err := doc.ResolvePath(Target{Path: "/items/1"})
		if err != nil {
			t.Fatal(err)
		}
		if got != "/items/{b}" {
			t.Fatalf("want /items/{b}, got %s", got)
		}
	}
}

func TestResolvePathUnbalancedBraces(t *testing.T) {
	doc := mustParse(t, `{"paths": {"/files/{id": {"get": {}}, "/files/{name}": {"get": {}}, "/raw/{a{b}": {"get": {}}}}`)
	cases := []struct {
		path string
		want string
	}{
		{"/files/report", "/files/{name}"},
		// 不完整的占位符只能完全匹配
		{"/files/{id", "/files/{id"},
		{"/raw/x", "/raw/{a{b}"},
	}
	for _, c := range cases {
		got, err := doc.ResolvePath(Target{Path: c.path})
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		if got != c.want {
			t.Fatalf("%s: want %s, got %s", c.path, c.want, got)
		}
	}
}

func TestResolvePathLiteralDots(t *testing.T) {
	doc := mustParse(t, `{"paths": {"/v1.0/{id}": {"get": {}}}}`)
	if _, err := doc.ResolvePath(Target{Path: "/v1x0/3"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("literal dot must not match any char, got %v", err)
	}
	if _, err := doc.ResolvePath(Target{Path: "/v1.0/3"}); err != nil {
		t.Fatal(err)
	}
}

func TestResolveOperationMethodCase(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	op, err := doc.ResolveOperation(Target{Method: "POST", Path: "/orders"})
	if err != nil {
		t.Fatal(err)
	}
	if op.OperationID != "createOrder" {
		t.Fatalf("want createOrder, got %s", op.OperationID)
	}
}

func TestResolveOperationDefaultsToGet(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	op, err := doc.ResolveOperation(Target{Path: "/orders/latest"})
	if err != nil {
		t.Fatal(err)
	}
	if op.Method != "get" || op.OperationID != "latestOrder" {
		t.Fatalf("unexpected operation %+v", op)
	}
}

func TestResolveOperationNotFoundIdempotent(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	target := Target{Method: "patch", Path: "/orders/1"}
	op1, err1 := doc.ResolveOperation(target)
	op2, err2 := doc.ResolveOperation(target)
	if !errors.Is(err1, ErrNotFound) || !errors.Is(err2, ErrNotFound) {
		t.Fatalf("want not found twice, got %v / %v", err1, err2)
	}
	if op1 != nil || op2 != nil {
		t.Fatal("operation must be nil when not found")
	}

	found := Target{Method: "get", Path: "/orders/9"}
	a, err := doc.FindOperationSchema(found)
	if err != nil {
		t.Fatal(err)
	}
	b, err := doc.FindOperationSchema(found)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}
}

func TestNilDocumentNotFound(t *testing.T) {
	var doc *Document
	if _, err := doc.FindOperationSchema(Target{Path: "/x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestExtractSchemaProperties(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	info, err := doc.FindOperationSchema(Target{Method: "post", Path: "/orders"})
	if err != nil {
		t.Fatal(err)
	}
	if !info.RequestBody.Flattened() {
		t.Fatalf("body must be flattened: %+v", info.RequestBody)
	}
	props := info.RequestBody.Properties.(*Object)
	if diff := cmp.Diff([]string{"name", "amount"}, props.Keys()); diff != "" {
		t.Fatalf("property order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, info.RequestBody.RequiredProps); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
	if len(info.Parameters) != 1 || info.Parameters[0].In != "header" || !info.Parameters[0].Required {
		t.Fatalf("unexpected parameters %+v", info.Parameters)
	}
}

func TestExtractSchemaRequiredList(t *testing.T) {
	cases := []struct {
		required string
		want     []string
	}{
		{`"name"`, []string{}},
		{`{"name": true}`, []string{}},
		{`null`, []string{}},
		{`["name", 1, null, "amount"]`, []string{"name", "amount"}},
	}
	for _, c := range cases {
		doc := mustParse(t, `{"paths": {"/x": {"post": {"requestBody": {"content": {"application/json": {"schema": {
      "properties": {"name": {"type": "string"}, "amount": {"type": "number"}},
      "required": `+c.required+`}}}}}}}}`)
		info, err := doc.FindOperationSchema(Target{Method: "post", Path: "/x"})
		if err != nil {
			t.Fatal(err)
		}
		if !info.RequestBody.Flattened() {
			t.Fatalf("%s: body must be flattened", c.required)
		}
		if diff := cmp.Diff(c.want, info.RequestBody.RequiredProps); diff != "" {
			t.Fatalf("%s: required (-want +got):\n%s", c.required, diff)
		}
	}
}

func TestExtractSchemaOpaque(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	info, err := doc.FindOperationSchema(Target{Method: "put", Path: "/orders/5"})
	if err != nil {
		t.Fatal(err)
	}
	if info.RequestBody.Flattened() {
		t.Fatal("ref schema must not be flattened")
	}
	s := info.RequestBody.Schema.(*Object)
	ref, _ := s.Get("$ref")
	if ref != "#/components/schemas/Order" {
		t.Fatalf("want original schema, got %v", ref)
	}
}

func TestExtractSchemaMissingBody(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	info, err := doc.FindOperationSchema(Target{Path: "/orders/5"})
	if err != nil {
		t.Fatal(err)
	}
	if info.RequestBody != nil {
		t.Fatalf("want nil body, got %+v", info.RequestBody)
	}
	want := []string{"id", "expand"}
	var got []string
	for _, p := range info.Parameters {
		got = append(got, p.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parameters (-want +got):\n%s", diff)
	}
	if info.Parameters[0].Type() != "integer" || info.Parameters[1].Type() != "" {
		t.Fatalf("unexpected types %q %q", info.Parameters[0].Type(), info.Parameters[1].Type())
	}
}

func TestExtractSchemaNilOperation(t *testing.T) {
	if _, err := ExtractSchema(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestExtractSchemaMediaTypeFallback(t *testing.T) {
	doc := mustParse(t, `
paths:
  /upload:
    post:
      requestBody:
        content:
          application/xml:
            schema:
              type: object
              properties:
                id: {type: string}
              required: id
          text/plain:
            schema: {type: string}
`)
	info, err := doc.FindOperationSchema(Target{Method: "post", Path: "/upload"})
	if err != nil {
		t.Fatal(err)
	}
	if info.RequestBody.MediaType != "application/xml" {
		t.Fatalf("want first declared media type, got %s", info.RequestBody.MediaType)
	}
	// required 不是数组时按空处理
	if info.RequestBody.RequiredProps == nil || len(info.RequestBody.RequiredProps) != 0 {
		t.Fatalf("want empty required list, got %#v", info.RequestBody.RequiredProps)
	}
}

func TestExtractSchemaJSONPreferred(t *testing.T) {
	doc := mustParse(t, `{"paths": {"/x": {"post": {"requestBody": {"content": {
    "text/plain": {"schema": {"type": "string"}},
    "application/json": {"schema": {"type": "array", "items": {"type": "string"}}}
  }}}}}}`)
	info, err := doc.FindOperationSchema(Target{Method: "post", Path: "/x"})
	if err != nil {
		t.Fatal(err)
	}
	if info.RequestBody.MediaType != "application/json" || info.RequestBody.Flattened() {
		t.Fatalf("unexpected body %+v", info.RequestBody)
	}
}

func TestBodyInfoJSON(t *testing.T) {
	doc := mustParse(t, ordersDoc)
	info, err := doc.FindOperationSchema(Target{Method: "post", Path: "/orders"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := info.RequestBody.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"mediaType":"application/json","properties":{"name":{"type":"string","description":"customer name"},"amount":{"type":"number"}},"requiredProps":["name"]}`
	if string(b) != want {
		t.Fatalf("want %s\n got %s", want, b)
	}
}
