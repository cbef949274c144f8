package database

import (
	"testing"
)

func TestDialector(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@127.0.0.1:5432/flowprobe":          "postgres",
		"postgresql://u:p@db/flowprobe":                    "postgres",
		"host=127.0.0.1 user=u dbname=flowprobe":           "postgres",
		"u:p@tcp(127.0.0.1:3306)/flowprobe?parseTime=true": "mysql",
		"mysql://u:p@tcp(127.0.0.1:3306)/flowprobe":        "mysql",
	}
	for dsn, want := range cases {
		if got := Dialector(dsn).Name(); got != want {
			t.Fatalf("%s: want %s, got %s", dsn, want, got)
		}
	}
}

func TestLookupUnregistered(t *testing.T) {
	if _, ok := Lookup("missing"); ok {
		t.Fatal("want missing")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Get must panic for unregistered db")
		}
	}()
	Get(t.Context(), "missing")
}
