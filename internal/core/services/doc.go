// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Worker pools use errgroup; watching uses fsnotify.
package services
