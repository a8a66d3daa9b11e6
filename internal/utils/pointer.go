package utils

// Ptr returns the address of a copy of v. Request payloads use it for
// optional fields such as temperature, where a zero value must still be sent
// and only a nil pointer is omitted.
func Ptr[T any](v T) *T {
	return &v
}
