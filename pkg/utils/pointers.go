package utils

func PtrTo[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value or the zero value of T for nil.
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}

	return *v
}
