// Package sse frames a text/event-stream body into events.
//
// It implements the client half of the Server-Sent Events wire format:
// data, event, id and retry fields, comment lines, and blank-line
// dispatch. Reconnection is not handled here; see package eventsource.
package sse
