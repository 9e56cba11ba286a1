// Package reconcile rebuilds the result of a live query from a baseline
// followed by JSON Patch (RFC 6902) updates.
//
// Payloads are classified by shape:
//
//   - a JSON array is a patch list addressing the whole result document,
//     e.g. [{"op":"replace","path":"/data/count","value":2}];
//   - an object with a "patch" key is an enveloped patch list addressing the
//     "data" member, optionally numbered: {"patch":[...],"revision":3};
//   - any other object is a baseline result {"data":...,"errors":[...]}.
//
// A Reconciler owns the snapshot of one subscription and emits it in full
// after every accepted payload. A patch that cannot be applied ends the
// stream and leaves the snapshot untouched.
package reconcile
