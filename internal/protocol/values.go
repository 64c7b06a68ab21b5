package protocol

// The wire format is positional: every record is a JSON array addressed by
// index, decoded into []any with json's default types (float64 numbers).
// These accessors are the only sanctioned way to reach into it; raw index
// chains panic on short arrays, these do not.

// AsArray reports v as a JSON array.
func AsArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

// AsString reports v as a JSON string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsInt reports v as a JSON number with integral value.
func AsInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// At returns arr[i], or nil when the array is too short.
func At(arr []any, i int) any {
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

// ArrayAt returns arr[i] as an array, or nil when missing or mistyped.
func ArrayAt(arr []any, i int) []any {
	inner, _ := AsArray(At(arr, i))
	return inner
}

// StringAt returns arr[i] as a string, or fallback when missing or mistyped.
func StringAt(arr []any, i int, fallback string) string {
	if s, ok := AsString(At(arr, i)); ok {
		return s
	}
	return fallback
}

// IntAt returns arr[i] as an int, or fallback when missing or mistyped.
func IntAt(arr []any, i int, fallback int) int {
	if n, ok := AsInt(At(arr, i)); ok {
		return n
	}
	return fallback
}
