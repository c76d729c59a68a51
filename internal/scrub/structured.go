package scrub

import "context"

// ScrubMap scrubs every string leaf of a map, recursing through nested maps
// and slices. The container shape is reconstructed unchanged; non-string
// leaves pass through untouched. A nil map is a no-op.
func (p *Pipeline) ScrubMap(ctx context.Context, value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	out := make(map[string]any, len(value))
	for key, v := range value {
		out[key] = p.ScrubValue(ctx, v)
	}
	return out
}

// ScrubSlice scrubs every string leaf of a slice, recursing through nested
// containers.
func (p *Pipeline) ScrubSlice(ctx context.Context, value []any) []any {
	if value == nil {
		return nil
	}
	out := make([]any, len(value))
	for i, v := range value {
		out[i] = p.ScrubValue(ctx, v)
	}
	return out
}

// ScrubValue applies the full pipeline to string leaves of an arbitrary
// nested structure. Unsupported leaf types are returned unchanged, never an
// error.
func (p *Pipeline) ScrubValue(ctx context.Context, value any) any {
	switch v := value.(type) {
	case string:
		return p.Scrub(ctx, v)
	case map[string]any:
		return p.ScrubMap(ctx, v)
	case []any:
		return p.ScrubSlice(ctx, v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = p.Scrub(ctx, s)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, s := range v {
			out[key] = p.Scrub(ctx, s)
		}
		return out
	default:
		return value
	}
}
