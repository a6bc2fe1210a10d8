// Package textutil holds the small text parsers shared by the event
// pipeline and the mesh peer lookup.
package textutil
