// Package core defines the shared language of the gdbcheck system.
//
// This package contains:
//   - Field values (Scalar) and records streamed from a dataset
//   - Layer kinds and their name patterns
//   - Error entries and the fixed check-kind taxonomy
//   - Source contracts (Dataset, Cursor) implemented by adapters
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
