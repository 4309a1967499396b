package utils

func NewPtr[T any](value T) *T {
	var newValue T = value
	return &newValue
}
