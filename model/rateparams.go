package model

// RateParams parameterize the built-in rate driver for one well. Producers
// follow an exponential oil decline with rising water cut and gas-oil
// ratio; injectors hold a steady surface rate. All values are positive
// magnitudes; the driver applies the storage sign conventions.
type RateParams struct {
	// OilRate is the surface oil rate at time zero.
	OilRate float64
	// DeclineRate is the fractional oil decline per second.
	DeclineRate float64

	// WaterCut is the produced water fraction at time zero and
	// WaterCutGrowth its increase per second.
	WaterCut       float64
	WaterCutGrowth float64

	// GasOilRatio is the produced gas per oil at time zero and GORGrowth
	// its increase per second.
	GasOilRatio float64
	GORGrowth   float64

	// BHP is the flowing bottom-hole pressure at time zero, declining by
	// BHPDecline per second as the reservoir depletes. THP stays fixed.
	BHP        float64
	BHPDecline float64
	THP        float64

	// PotentialFactor scales current rates into potentials; zero means
	// potentials equal the rates.
	PotentialFactor float64

	// InjectionRate is the steady surface rate for injectors.
	InjectionRate float64
}
