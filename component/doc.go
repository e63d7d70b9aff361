// Package component defines the lifecycle contract for infrastructure pieces
// and a Registry that starts, stops and health-checks them in order.
package component
