package reconcile_test

import (
	"encoding/json"
	"testing"

	"github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/reconcile"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      reconcile.PayloadKind
		enveloped bool
		revision  int64
		hasRev    bool
	}{
		{name: "baseline", raw: `{"data":{"count":1}}`, kind: reconcile.PayloadBaseline},
		{name: "baseline with errors only", raw: `{"errors":[{"message":"denied"}]}`, kind: reconcile.PayloadBaseline},
		{name: "baseline with revision", raw: `{"data":{},"revision":4}`, kind: reconcile.PayloadBaseline, revision: 4, hasRev: true},
		{name: "bare patch", raw: `[{"op":"replace","path":"/data/count","value":2}]`, kind: reconcile.PayloadPatch},
		{name: "empty patch", raw: ` [] `, kind: reconcile.PayloadPatch},
		{name: "envelope", raw: `{"patch":[{"op":"add","path":"/a","value":1}]}`, kind: reconcile.PayloadPatch, enveloped: true},
		{name: "envelope with revision", raw: `{"patch":[],"revision":2}`, kind: reconcile.PayloadPatch, enveloped: true, revision: 2, hasRev: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reconcile.Decode(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Kind != tt.kind || p.Enveloped != tt.enveloped {
				t.Errorf("got kind=%v enveloped=%v", p.Kind, p.Enveloped)
			}
			if p.Revision != tt.revision || p.HasRevision != tt.hasRev {
				t.Errorf("got revision=%d (%v)", p.Revision, p.HasRevision)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty":                  ``,
		"scalar":                 `42`,
		"string":                 `"data"`,
		"null":                   `null`,
		"array of scalars":       `[1,2]`,
		"null operation":         `[null]`,
		"operation without op":   `[{"path":"/a"}]`,
		"operation without path": `[{"op":"remove"}]`,
		"envelope null patch":    `{"patch":null}`,
		"envelope object patch":  `{"patch":{"op":"add"}}`,
		"bad revision":           `{"patch":[],"revision":"two"}`,
		"broken object":          `{"data":`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := reconcile.Decode(json.RawMessage(raw))
			if !errors.HasCode(err, errors.ErrCodeMalformedPayload) {
				t.Errorf("expected MALFORMED_PAYLOAD, got %v", err)
			}
		})
	}
}

func TestDecode_EnvelopeErrorsAndExtensions(t *testing.T) {
	p, err := reconcile.Decode(json.RawMessage(`{"patch":[],"revision":2,"errors":[{"message":"x"}],"extensions":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Errors) != `[{"message":"x"}]` {
		t.Errorf("errors = %s", p.Errors)
	}
	if p.Extensions != nil {
		t.Errorf("null extensions should be absent, got %s", p.Extensions)
	}
}
