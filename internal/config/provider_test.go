package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sample = `
app:
  log:
    debug: true
backend:
  baseUrl: http://backend:8080
  timeout: 30s
store:
  redis:
    default:
      url: tcp://127.0.0.1:6379/0
      maxRetries: 2
`

func load(t *testing.T) Provider {
	t.Helper()
	p, err := LoadConfigReader(strings.NewReader(sample), "yaml")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestChild(t *testing.T) {
	p := load(t)
	backend := p.Child("backend")
	if backend.GetString("baseUrl") != "http://backend:8080" || backend.GetDuration("timeout") != 30*time.Second {
		t.Fatalf("unexpected backend %q %v", backend.GetString("baseUrl"), backend.GetDuration("timeout"))
	}
	if !p.Child("app").Child("log").GetBool("debug") {
		t.Fatal("nested child must resolve")
	}
	missing := p.Child("broker").Child("amqp")
	if missing == nil || missing.IsSet("dsn") || missing.GetString("dsn") != "" {
		t.Fatal("missing child must be empty")
	}
}

func TestDecode(t *testing.T) {
	type redisConfig struct {
		Url        string
		MaxRetries int
	}
	var got map[string]redisConfig
	if err := load(t).Child("store").Decode("redis", &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]redisConfig{"default": {Url: "tcp://127.0.0.1:6379/0", MaxRetries: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decode (-want +got):\n%s", diff)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FLOWPROBE_BACKEND_BASEURL", "http://override:9000")
	if got := load(t).Child("backend").GetString("baseUrl"); got != "http://override:9000" {
		t.Fatalf("env must win, got %s", got)
	}
}
