// Package services defines error markers shared by the dispatch
// collaborators.
//
// Collaborators wrap failures with Wrap so the dispatcher and the history
// store can classify them (configuration problem, failing external tool,
// timeout) without parsing messages.
package services
