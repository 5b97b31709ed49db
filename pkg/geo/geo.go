package geo

import "math"

// EarthRadiusMeters - средний радиус Земли, используемый формулой гаверсинусов
const EarthRadiusMeters = 6371000.0

// Point - координата в градусах WGS 84
type Point struct {
	Lat float64
	Lon float64
}

// DistanceMeters возвращает расстояние по большому кругу между двумя точками в метрах.
// Координаты не проверяются, это ответственность вызывающего кода.
func DistanceMeters(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// IsInside сообщает, лежит ли точка в круге с центром center и радиусом radiusMeters.
// Граница считается внутренней.
func IsInside(point, center Point, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}

// ValidLatLon проверяет, что широта и долгота находятся в допустимых пределах
func ValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
