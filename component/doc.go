// Package component defines the lifecycle interface shared by the
// long-lived pieces of a gears deployment, such as an in-process engine
// server used by tests.
package component
