// Package formstate is the single source of truth for one form instance: it
// stores field values addressed by `pets[0].name` style paths, tracks which
// fields the user has touched, keeps the error map produced by a
// schema.Validator and owns the submission flag.
//
// Rendering layers read Snapshot (or subscribe to it) and feed user events
// back through HandleChange, HandleBlur, the array operations and Submit.
// Errors are computed eagerly but FieldState.DisplayError gates them on the
// touched flag, so a field only shows its error once the user has left it.
//
// Validation is all-or-nothing: every Validate call replaces the error map
// wholesale, and when two runs overlap only the most recent one is applied.
package formstate
