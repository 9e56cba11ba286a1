package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/pipeline"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// Reconciler turns the raw events of one subscription into result
// snapshots. It is driven by a single goroutine.
type Reconciler struct {
	src pipeline.Iterator[eventsource.RawEvent]
	log *logger.Logger

	snapshot    []byte
	revision    int64
	hasRevision bool
	patches     int
	done        bool
}

// New creates a Reconciler reading from src. A nil src is allowed when the
// Reconciler is only used through Apply.
func New(src pipeline.Iterator[eventsource.RawEvent], opts ...Option) *Reconciler {
	r := &Reconciler{src: src}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrComponent(r.log, "reconcile")
	return r
}

// Next returns the snapshot produced by the next data event. Terminal events
// end the sequence; error events, undecodable payloads and failed patches
// end it with an error.
func (r *Reconciler) Next(ctx context.Context) (*operation.Result, bool, error) {
	if r.done {
		return nil, false, nil
	}
	ev, ok, err := r.src.Next(ctx)
	if err != nil {
		r.done = true
		return nil, false, err
	}
	if !ok {
		r.done = true
		return nil, false, nil
	}

	switch ev.Kind {
	case eventsource.KindTerminal:
		r.done = true
		return nil, false, nil
	case eventsource.KindError:
		r.done = true
		return nil, false, ev.Err
	case eventsource.KindData:
		if err := ctx.Err(); err != nil {
			r.done = true
			return nil, false, err
		}
		p, err := Decode(ev.Data)
		if err != nil {
			r.done = true
			return nil, false, err
		}
		res, err := r.Apply(p)
		if err != nil {
			r.done = true
			r.log.Warn("dropping subscription after failed patch", logger.MergeWithError(
				logger.Fields(logger.FieldEventID, ev.ID, logger.FieldRevision, r.revision), err))
			return nil, false, err
		}
		return res, true, nil
	default:
		r.done = true
		return nil, false, errors.Internal(fmt.Errorf("unknown event kind %d", ev.Kind))
	}
}

// Close closes the underlying event source. It is safe to call from another
// goroutine when the source is.
func (r *Reconciler) Close() error {
	if r.src == nil {
		return nil
	}
	return r.src.Close()
}

// Apply performs one transition: a baseline replaces the snapshot, a patch
// edits a copy of it. The snapshot is committed only when the whole payload
// applies, and the new snapshot is returned.
func (r *Reconciler) Apply(p Payload) (*operation.Result, error) {
	switch p.Kind {
	case PayloadBaseline:
		res, err := toResult(p.Document)
		if err != nil {
			return nil, errors.MalformedPayload("baseline is not a GraphQL result", err)
		}
		r.snapshot = append([]byte(nil), p.Document...)
		r.revision, r.hasRevision = p.Revision, p.HasRevision
		r.log.Debug("baseline received", logger.Fields(logger.FieldRevision, p.Revision))
		return res, nil

	case PayloadPatch:
		if r.snapshot == nil {
			return nil, errors.PatchApplication(r.patches, fmt.Errorf("patch received before a baseline"))
		}
		if p.Enveloped && !p.HasRevision {
			return nil, errors.PatchApplication(r.patches, fmt.Errorf("enveloped patch has no revision"))
		}
		if p.HasRevision && r.hasRevision && p.Revision != r.revision+1 {
			return nil, errors.PatchApplication(r.patches,
				fmt.Errorf("revision %d does not follow %d", p.Revision, r.revision))
		}

		next, err := r.patch(p)
		if err != nil {
			return nil, errors.PatchApplication(r.patches, err)
		}
		res, err := toResult(next)
		if err != nil {
			return nil, errors.PatchApplication(r.patches, fmt.Errorf("patched document is not a GraphQL result: %w", err))
		}

		r.snapshot = next
		r.patches++
		if p.HasRevision {
			r.revision, r.hasRevision = p.Revision, true
		}
		return res, nil

	default:
		return nil, errors.Internal(fmt.Errorf("unknown payload kind %d", p.Kind))
	}
}

// Snapshot returns a copy of the current result document, or nil before the
// baseline.
func (r *Reconciler) Snapshot() json.RawMessage {
	if r.snapshot == nil {
		return nil
	}
	return append(json.RawMessage(nil), r.snapshot...)
}

// Revision returns the revision of the current snapshot, if known.
func (r *Reconciler) Revision() (int64, bool) {
	return r.revision, r.hasRevision
}

// applyOptions rejects "-1" style indices, which RFC 6902 does not define.
func applyOptions() *jsonpatch.ApplyOptions {
	opts := jsonpatch.NewApplyOptions()
	opts.SupportNegativeIndices = false
	return opts
}

// patch applies p to a copy of the snapshot. Enveloped patches edit the
// "data" member only and bring their own errors and extensions.
func (r *Reconciler) patch(p Payload) (next []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			next, err = nil, fmt.Errorf("patch could not be applied: %v", v)
		}
	}()

	if !p.Enveloped {
		return p.Patch.ApplyWithOptions(r.snapshot, applyOptions())
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(r.snapshot, &doc); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(doc["data"])
	if len(data) == 0 || (data[0] != '{' && data[0] != '[') {
		return nil, fmt.Errorf("snapshot has no data to patch")
	}
	patched, err := p.Patch.ApplyWithOptions(data, applyOptions())
	if err != nil {
		return nil, err
	}
	doc["data"] = patched
	delete(doc, "errors")
	delete(doc, "extensions")
	if p.Errors != nil {
		doc["errors"] = p.Errors
	}
	if p.Extensions != nil {
		doc["extensions"] = p.Extensions
	}
	return json.Marshal(doc)
}

func toResult(doc []byte) (*operation.Result, error) {
	var res operation.Result
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
