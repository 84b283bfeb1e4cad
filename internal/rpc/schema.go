package rpc

// Small hand-rolled JSON-schema builders used when registering tools, in
// place of the teacher's jsonschema-struct-tag reflection (go-sdk generates
// these from Go types; here the registry is self-implemented, so the
// schemas are written out directly).

func obj(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func str(desc string) map[string]any     { return map[string]any{"type": "string", "description": desc} }
func integer(desc string) map[string]any { return map[string]any{"type": "integer", "description": desc} }
func boolean(desc string) map[string]any { return map[string]any{"type": "boolean", "description": desc} }
func array(items map[string]any, desc string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": desc}
}
