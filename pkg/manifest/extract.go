package manifest

import "fmt"

// GlobalsKey is the well-known key a Runtime implementation is asked for
// after it evaluates an application's top-level code (spec §4.7,
// "__hull_manifest or equivalent"). Per the redesign note in spec §9, this
// core never reads an interpreter's global namespace directly — a Runtime
// exposes registration explicitly instead (see
// runtime.Runtime.ExtractManifest) and
// GlobalsKey only documents the legacy key name for interpreter-side
// compatibility shims.
const GlobalsKey = "__hull_manifest"

// Source is implemented by anything that can hand back the raw manifest
// document a loaded application declared — ordinarily a small adapter over
// runtime.Runtime.ExtractManifest, via its registration table rather than a
// global lookup.
type Source interface {
	// ManifestDocument returns the manifest the application registered, or
	// nil if the application declared none (an all-empty manifest is then
	// assumed, per spec §4.7 "missing sub-keys default to empty sets").
	ManifestDocument() (any, error)
}

// Extract pulls the manifest from a Source, validates its shape, and
// freezes it into a Manifest. Called exactly once at startup, after the
// application's top-level code has run and before the sandbox is applied
// (spec's startup control-flow diagram, §2).
func Extract(src Source) (*Manifest, error) {
	doc, err := src.ManifestDocument()
	if err != nil {
		return nil, fmt.Errorf("manifest: extraction failed: %w", err)
	}
	if doc == nil {
		return Parse(Raw{})
	}
	if err := ValidateShape(doc); err != nil {
		return nil, err
	}
	raw, err := decodeRaw(doc)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// decodeRaw converts the generic any tree (map[string]any/[]any, the shape
// produced by json.Unmarshal into `any`, and the shape a Runtime's globals
// walk naturally produces) into Raw without an intermediate JSON round
// trip, since interpreter-native tables are not JSON-encoded to begin with.
func decodeRaw(doc any) (Raw, error) {
	var raw Raw
	top, ok := doc.(map[string]any)
	if !ok {
		return raw, fmt.Errorf("manifest: expected a table at the top level, got %T", doc)
	}

	if fsAny, ok := top["fs"]; ok {
		fsTable, ok := fsAny.(map[string]any)
		if !ok {
			return raw, fmt.Errorf("manifest: fs: expected a table, got %T", fsAny)
		}
		var err error
		raw.FS.Read, err = stringSlice(fsTable["read"])
		if err != nil {
			return raw, fmt.Errorf("manifest: fs.read: %w", err)
		}
		raw.FS.Write, err = stringSlice(fsTable["write"])
		if err != nil {
			return raw, fmt.Errorf("manifest: fs.write: %w", err)
		}
	}

	var err error
	raw.Env, err = stringSlice(top["env"])
	if err != nil {
		return raw, fmt.Errorf("manifest: env: %w", err)
	}
	raw.Hosts, err = stringSlice(top["hosts"])
	if err != nil {
		return raw, fmt.Errorf("manifest: hosts: %w", err)
	}
	return raw, nil
}

func stringSlice(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs, nil
		}
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string entry, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
