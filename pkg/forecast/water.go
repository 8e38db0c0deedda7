package forecast

// GallonsPerLiter converts liters to US gallons.
const GallonsPerLiter = 0.264172

// WaterGallonsPerDay is the cooling water drawn by loadMW of data center load
// at the given water usage effectiveness (L/kWh).
func WaterGallonsPerDay(loadMW, wue float64) float64 {
	return loadMW * 1000 * 24 * wue * GallonsPerLiter
}
