package utils

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// FirstNonEmpty returns the first non-empty string of values.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
