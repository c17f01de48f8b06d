// Package et0 computes daily reference evapotranspiration with the
// FAO-56 Penman-Monteith equation.
package et0

import "math"

// DefaultAltitude is the station altitude in meters used when no
// per-site altitude is configured (Jendouba plain).
const DefaultAltitude = 143

// saturationVaporPressure returns es in kPa for a temperature in °C.
func saturationVaporPressure(t float64) float64 {
	return 0.6108 * math.Exp((17.27*t)/(t+237.3))
}

// svpSlope returns the slope of the saturation vapor pressure curve
// (kPa/°C).
func svpSlope(t float64) float64 {
	return (4098 * saturationVaporPressure(t)) / math.Pow(t+237.3, 2)
}

// psychrometricConstant returns gamma (kPa/°C) for an altitude in
// meters, from the standard-atmosphere pressure at that altitude.
func psychrometricConstant(altitude float64) float64 {
	p := 101.3 * math.Pow((293-0.0065*altitude)/293, 5.26)
	return 0.000665 * p
}

// Compute returns daily ET0 in mm/day. Inputs: tmin/tmax in °C, solar
// radiation in MJ/m²/day (taken directly as net radiation, soil heat
// flux zero at daily steps), relative humidity in %, wind at 2m in
// m/s. Any missing input or negative radiation yields nil. The result
// is clamped at zero and rounded to 2 decimals.
func Compute(tmin, tmax, radiation, rh, wind *float64, altitude float64) *float64 {
	if tmin == nil || tmax == nil || radiation == nil || rh == nil || wind == nil {
		return nil
	}
	if *radiation < 0 {
		return nil
	}

	tmean := (*tmin + *tmax) / 2

	es := saturationVaporPressure(tmean)
	ea := es * (*rh / 100)
	delta := svpSlope(tmean)
	gamma := psychrometricConstant(altitude)

	numerator := 0.408*delta*(*radiation) + gamma*(900/(tmean+273))*(*wind)*(es-ea)
	denominator := delta + gamma*(1+0.34*(*wind))

	v := numerator / denominator
	if v < 0 {
		v = 0
	}
	v = math.Round(v*100) / 100
	return &v
}
