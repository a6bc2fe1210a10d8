// Package ipc exposes the daemon over JSON-RPC on a Unix domain socket.
//
// The server registers a single "Syncer" service with Status, Report,
// History and Stop methods; the client wraps each call for the CLI. Request
// and response types carry JSON tags so the wire format stays readable when
// inspected with socat.
package ipc
