// Package operation describes GraphQL operations and decides which
// transport carries them.
//
// An operation is streaming when it is a subscription, or a query marked
// with the @live directive:
//
//	query GetPosts @live { posts { id title } }
//	query Feed($live: Boolean) @live(if: $live) { feed { id } }
//
// Streaming operations go over a server-sent event stream; everything else
// takes the request/response path.
package operation
