package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/kbukum/livequery/errors"
)

// PayloadKind tags a decoded payload.
type PayloadKind int

const (
	// PayloadBaseline replaces the snapshot.
	PayloadBaseline PayloadKind = iota
	// PayloadPatch edits the snapshot.
	PayloadPatch
)

func (k PayloadKind) String() string {
	if k == PayloadPatch {
		return "patch"
	}
	return "baseline"
}

// Payload is one decoded inbound message.
type Payload struct {
	Kind PayloadKind
	// Document is the full result (PayloadBaseline).
	Document json.RawMessage
	// Patch is the ordered operation list (PayloadPatch).
	Patch jsonpatch.Patch
	// Enveloped patches address the "data" member rather than the document root.
	Enveloped bool
	// Errors and Extensions of an enveloped patch replace those of the
	// snapshot. Absent members clear them.
	Errors     json.RawMessage
	Extensions json.RawMessage
	// Revision numbers the payload when HasRevision is set.
	Revision    int64
	HasRevision bool
}

// Baseline builds a baseline payload.
func Baseline(doc json.RawMessage) Payload {
	return Payload{Kind: PayloadBaseline, Document: doc}
}

// PatchList builds a bare patch payload from raw RFC 6902 operations.
func PatchList(ops json.RawMessage) (Payload, error) {
	patch, err := decodeOps(ops)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Kind: PayloadPatch, Patch: patch}, nil
}

type envelope struct {
	Patch      json.RawMessage `json:"patch"`
	Revision   *int64          `json:"revision"`
	Errors     json.RawMessage `json:"errors"`
	Extensions json.RawMessage `json:"extensions"`
}

type baselineHeader struct {
	Revision *int64 `json:"revision"`
}

// Decode classifies raw as a baseline or a patch list.
func Decode(raw json.RawMessage) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{}, errors.MalformedPayload("empty payload", nil)
	}

	switch trimmed[0] {
	case '[':
		return PatchList(trimmed)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Payload{}, errors.MalformedPayload("invalid JSON object", err)
		}
		if _, ok := fields["patch"]; ok {
			return decodeEnvelope(trimmed)
		}
		var hdr baselineHeader
		if err := json.Unmarshal(trimmed, &hdr); err != nil {
			return Payload{}, errors.MalformedPayload("invalid revision", err)
		}
		p := Baseline(json.RawMessage(trimmed))
		if hdr.Revision != nil {
			p.Revision, p.HasRevision = *hdr.Revision, true
		}
		return p, nil
	default:
		return Payload{}, errors.MalformedPayload("expected a JSON object or array", nil)
	}
}

func decodeEnvelope(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Payload{}, errors.MalformedPayload("invalid patch envelope", err)
	}
	p, err := PatchList(env.Patch)
	if err != nil {
		return Payload{}, err
	}
	p.Enveloped = true
	p.Errors = present(env.Errors)
	p.Extensions = present(env.Extensions)
	if env.Revision != nil {
		p.Revision, p.HasRevision = *env.Revision, true
	}
	return p, nil
}

// present returns nil for an absent or null member.
func present(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// decodeOps checks that every element is an operation object with op and
// path before handing the list to jsonpatch.
func decodeOps(raw json.RawMessage) (jsonpatch.Patch, error) {
	var ops []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, errors.MalformedPayload("patch must be an array of operation objects", err)
	}
	if ops == nil {
		return nil, errors.MalformedPayload("patch must be an array of operation objects", nil)
	}
	for i, op := range ops {
		if op == nil {
			return nil, errors.MalformedPayload(fmt.Sprintf("patch operation %d is not an object", i), nil)
		}
		if _, ok := op["op"]; !ok {
			return nil, errors.MalformedPayload(fmt.Sprintf("patch operation %d has no op", i), nil)
		}
		if _, ok := op["path"]; !ok {
			return nil, errors.MalformedPayload(fmt.Sprintf("patch operation %d has no path", i), nil)
		}
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, errors.MalformedPayload("invalid patch", err)
	}
	return patch, nil
}
