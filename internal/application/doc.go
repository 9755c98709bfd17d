// Package application wires the inventory store, stock cache, fit evaluator,
// HTTP handlers and server together so the main package only deals with
// CLI parsing and shutdown.
package application
