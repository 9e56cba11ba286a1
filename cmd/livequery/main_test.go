package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildOperation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "q.graphql")
	if err := os.WriteFile(file, []byte("query Q { a }"), 0o600); err != nil {
		t.Fatal(err)
	}

	op, err := buildOperation(flags{queryFile: file, operation: "Q", variables: `{"id":1}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Query != "query Q { a }" || op.OperationName != "Q" {
		t.Errorf("unexpected operation %+v", op)
	}
	if op.Variables["id"] != float64(1) {
		t.Errorf("unexpected variables %v", op.Variables)
	}

	tests := []struct {
		name string
		f    flags
	}{
		{"no document", flags{}},
		{"both sources", flags{query: "{ a }", queryFile: file}},
		{"bad variables", flags{query: "{ a }", variables: "[1"}},
		{"missing file", flags{queryFile: filepath.Join(dir, "nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildOperation(tt.f); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRun_Mutation(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"like":{"id":"1"}}}`))
	}))
	defer srv.Close()

	cfgFile := filepath.Join(t.TempDir(), "livequery.yaml")
	if err := os.WriteFile(cfgFile, []byte("logging:\n  level: disabled\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(context.Background(), flags{
		configFile: cfgFile,
		endpoint:   srv.URL,
		query:      `mutation { like(id: "1") { id } }`,
		token:      "opaque",
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer opaque" {
		t.Errorf("unexpected authorization %q", auth)
	}

	var res struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "\n  \"data\"") {
		t.Errorf("expected indented output, got %s", out.String())
	}
}

func TestRun_MissingEndpoint(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "livequery.yaml")
	if err := os.WriteFile(cfgFile, []byte("logging:\n  level: disabled\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), flags{configFile: cfgFile, query: "{ a }"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected a validation error")
	}
}
