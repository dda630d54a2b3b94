// Package memory provides in-memory implementations of the storage ports.
// They back the "memory" index backend and the service tests.
package memory
