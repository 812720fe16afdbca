package solver

// VehicleProfile describes the performance envelope the solver plans
// against. Grip here is the tire's base coefficient on a dry reference
// surface; the weather-effective mu handed to Solve already folds surface
// condition and temperature in.
type VehicleProfile struct {
	MassKg         float64
	DragCoeff      float64
	FrontalAreaM2  float64
	BaseTireGripMu float64
	MaxLateralG    float64
	MaxBrakingG    float64
	MaxPowerW      float64
	TopSpeedMps    float64
}

// DefaultVehicleProfile returns a mid-grade track car.
func DefaultVehicleProfile() VehicleProfile {
	return VehicleProfile{
		MassKg:         1250,
		DragCoeff:      0.35,
		FrontalAreaM2:  1.9,
		BaseTireGripMu: 1.40,
		MaxLateralG:    1.8,
		MaxBrakingG:    1.3,
		MaxPowerW:      330e3,
		TopSpeedMps:    88,
	}
}
