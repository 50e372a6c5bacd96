package data

// Merge folds theme data into site data in place. For every key:
//
//   - a site value that is missing, nil or false is replaced by the theme value;
//   - two mappings are deep merged, site entries winning;
//   - two sequences are concatenated, theme items first, then site items;
//   - anything else keeps the site value.
//
// The sequence rule appends rather than overrides, unlike the mapping and
// scalar rules. Themes provide the base ordering and sites add to it.
func Merge(siteData, themeData map[string]any) {
	for key, themeValue := range themeData {
		siteValue, ok := siteData[key]
		if !ok {
			siteData[key] = themeValue
			continue
		}
		siteData[key] = mergeValue(themeValue, siteValue)
	}
}

func mergeValue(themeValue, siteValue any) any {
	if isEmpty(siteValue) {
		return themeValue
	}

	switch sv := siteValue.(type) {
	case map[string]any:
		if tv, ok := themeValue.(map[string]any); ok {
			return DeepMerge(tv, sv)
		}
	case []any:
		if tv, ok := themeValue.([]any); ok {
			out := make([]any, 0, len(tv)+len(sv))
			out = append(out, tv...)
			return append(out, sv...)
		}
	}
	return siteValue
}

// DeepMerge returns a new mapping holding base overlaid with override.
// A nil override entry keeps the base value, two nested mappings are merged
// recursively and any other override entry replaces the base value. Neither
// argument is modified.
func DeepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}

	for k, ov := range override {
		bv, exists := out[k]
		switch {
		case ov == nil && exists:
			// keep base
		case exists:
			bm, bok := bv.(map[string]any)
			om, ook := ov.(map[string]any)
			if bok && ook {
				out[k] = DeepMerge(bm, om)
			} else {
				out[k] = ov
			}
		default:
			out[k] = ov
		}
	}
	return out
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	b, ok := v.(bool)
	return ok && !b
}
