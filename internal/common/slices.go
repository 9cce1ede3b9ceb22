package common

func Filter[T any](slice []T, f func(T) bool) []T {
	result := []T{}
	for _, item := range slice {
		if f(item) {
			result = append(result, item)
		}
	}
	return result
}

func Map[T, R any](slice []T, f func(T) R) []R {
	result := make([]R, 0, len(slice))
	for _, item := range slice {
		result = append(result, f(item))
	}
	return result
}
