package utils

func TT[T any](condition bool, x T, y T) T {
	if condition {
		return x
	}
	return y
}

func TTF[T any](condition bool, x func() T, y func() T) T {
	if condition {
		return x()
	}
	return y()
}
