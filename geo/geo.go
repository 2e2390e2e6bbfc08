package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371

// HaversineKm calculates the great-circle distance between two points in km
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DeriveRoomID maps a GPS fix to its room id. Coordinates are rounded to
// 3 decimal places (~111m cells), so fixes inside the same cell share a room.
// Sign is encoded as a p/n prefix so negative coordinates stay unambiguous
// inside the dash-separated id.
func DeriveRoomID(lat, lng float64) string {
	return fmt.Sprintf("room-%s-%s", cellComponent(lat), cellComponent(lng))
}

func cellComponent(coord float64) string {
	cell := int(math.Round(coord * 1000))
	if cell < 0 {
		return fmt.Sprintf("n%d", -cell)
	}
	return fmt.Sprintf("p%d", cell)
}
