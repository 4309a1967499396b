package utils

import "cmp"

func MapValues[K comparable, T any](m map[K]T) []T {
	var values []T
	for _, value := range m {
		values = append(values, value)
	}
	return values
}

func MapKeys[K comparable, T any](m map[K]T) []K {
	var keys []K
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

func MapHas[K comparable, T any](m map[K]T, k K) bool {
	if m == nil {
		return false
	}
	_, ok := m[k]
	return ok
}

func Max[T cmp.Ordered](values []T) T {
	var maxValue T
	for idx, value := range values {
		if idx == 0 || value > maxValue {
			maxValue = value
		}
	}
	return maxValue
}
