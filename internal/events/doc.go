// Package events turns the dovecot notification pipe into debounced batches.
//
// A Producer reads newline-delimited records from a named pipe and pushes
// them onto a Queue. A Consumer polls the Queue without blocking and closes
// a batch only after the Queue has been observed empty timer_limit times in
// a row, each poll separated by timer_delay. Batches are handed to a Handler
// synchronously.
package events
