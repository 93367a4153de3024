// Package services defines the shared failure taxonomy for engine
// operations: sentinel errors for classification plus a Wrap helper that
// attaches engine/operation context to an underlying cause.
package services
