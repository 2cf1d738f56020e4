package weather

import "math"

//EarthRadiusKm is the mean earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

//District is a named reference point with published evapotranspiration data
type District struct {
	Name      string
	Latitude  float64
	Longitude float64
}

//Districts lists the known reference points. Order matters: ties go to the earliest entry.
var Districts = []District{
	{Name: "lisboa", Latitude: 38.7169, Longitude: -9.1399},
	{Name: "porto", Latitude: 41.1496, Longitude: -8.6109},
	{Name: "faro", Latitude: 37.0194, Longitude: -7.9304},
	{Name: "coimbra", Latitude: 40.2111, Longitude: -8.4291},
}

//Haversine returns the great-circle distance in kilometres between two coordinates
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

//ClosestDistrict returns the name of the district nearest to the coordinate
func ClosestDistrict(lat, lon float64) string {
	closest := Districts[0]
	shortest := math.Inf(1)

	for _, d := range Districts {
		if distance := Haversine(lat, lon, d.Latitude, d.Longitude); distance < shortest {
			closest = d
			shortest = distance
		}
	}

	return closest.Name
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
