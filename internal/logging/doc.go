// Package logging configures structured slog output for clipforge.
//
// Engines receive a *slog.Logger and tag their records with a component
// attribute via NewComponentLogger. Console output is a compact
// single-line format; JSON output is available for machine consumption.
package logging
