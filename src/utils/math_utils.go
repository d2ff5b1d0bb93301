package utils

// Deref returns the pointed-to value, or zero for nil. Aggregations treat an
// unknown monetary field as contributing nothing.
func Deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
