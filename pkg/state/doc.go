// Package state defines persistence-facing contracts for loading and saving
// per-scope option snapshots, plus a resolver that turns stored snapshots
// into a fresh Options collection for each request.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Resolver loads snapshots for several scopes, decodes them (0/1 booleans
//     and JSON numbers are normalized), merges them through a layering.Stack
//     and hands the result to a Registrar that builds the options.
//   - The core opts package remains persistence-agnostic; real drivers live
//     behind Store implementations supplied by consumers.
//
// Data flow:
//
//	Store -> hydrate.Decoder -> layering.NewStack(...).Merge() -> Registrar.Register -> *opts.Options
//
// Provenance:
//
//	Meta.SnapshotID is mapped onto layering.Layer.SnapshotID, which is then
//	observable through Stack.Resolve(path).
//
// Deterministic keys:
//
//	Ref.Identifier() provides the canonical storage key for the defaults,
//	network and site scopes.
package state
