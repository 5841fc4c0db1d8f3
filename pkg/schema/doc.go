// Package schema holds the declarative validation model consumed by the form
// engine. A Schema is a flat list of fields keyed by path (`lastName`,
// `pets[].name`), each carrying an ordered list of rules with string
// parameters so documents can be authored in YAML or JSON and snapshot
// deterministically. One interpreter evaluates every rule kind: required runs
// first and short-circuits, and only the first failing rule is reported per
// concrete path. Fields also carry the input kind (text, checkbox, radio,
// select, array) and option lists the engine uses to coerce raw input.
package schema
