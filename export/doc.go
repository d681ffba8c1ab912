// Package export packages a recording into a portable bundle.
//
// A bundle is a zip archive with exactly two entries:
//
//	recording.json  the retained events as a JSON array, oldest first
//	meta.json       pretty-printed metadata: export time, reason, identity,
//	                tags, breadcrumbs, and environment descriptors
//
// Viewers only need recording.json; meta.json is additive and may be absent
// from bundles written by other tools.
//
// Building a bundle is pure: it reads its inputs, never mutates them, and
// performs no disk or network I/O.
//
//	data, err := export.Build(events, export.NewMetadata(state, "crash", env, time.Now()))
//	if errors.Is(err, export.ErrBuildFailed) {
//	    // state is untouched; safe to retry
//	}
//
//	bundle, err := export.Read(data)
package export
