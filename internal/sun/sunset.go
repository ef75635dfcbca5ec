// Package sun computes sunset instants and the weekly Sabbath window
// (local Friday sunset through local Saturday sunset).
package sun

import (
	"math"
	"time"
)

// sunsetZenith is the solar zenith angle at sunset: 90° plus apparent
// solar radius and standard atmospheric refraction.
const sunsetZenith = 90.833

// SunsetUTC returns the UTC instant of sunset for the given calendar
// date at the given coordinates, using the NOAA solar position
// formulation evaluated at 0h UTC of that date. Pure function of its
// inputs; results are truncated to the millisecond.
func SunsetUTC(year int, month time.Month, day int, latitude, longitude float64) time.Time {
	jd := julianDay(year, int(month), day)
	jc := (jd - 2451545.0) / 36525.0

	meanLong := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360.0)
	meanAnom := 357.52911 + jc*(35999.05029-0.0001537*jc)
	eccent := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	eqOfCenter := math.Sin(rad(meanAnom))*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(rad(2*meanAnom))*(0.019993-0.000101*jc) +
		math.Sin(rad(3*meanAnom))*0.000289

	trueLong := meanLong + eqOfCenter
	apparentLong := trueLong - 0.00569 - 0.00478*math.Sin(rad(125.04-1934.136*jc))

	meanObliq := 23.0 + (26.0+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60.0)/60.0
	obliqCorr := meanObliq + 0.00256*math.Cos(rad(125.04-1934.136*jc))

	declination := deg(math.Asin(math.Sin(rad(obliqCorr)) * math.Sin(rad(apparentLong))))

	varY := math.Tan(rad(obliqCorr/2)) * math.Tan(rad(obliqCorr/2))
	eqOfTime := 4 * deg(varY*math.Sin(2*rad(meanLong))-
		2*eccent*math.Sin(rad(meanAnom))+
		4*eccent*varY*math.Sin(rad(meanAnom))*math.Cos(2*rad(meanLong))-
		0.5*varY*varY*math.Sin(4*rad(meanLong))-
		1.25*eccent*eccent*math.Sin(2*rad(meanAnom)))

	hourAngle := deg(math.Acos(math.Cos(rad(sunsetZenith))/(math.Cos(rad(latitude))*math.Cos(rad(declination))) -
		math.Tan(rad(latitude))*math.Tan(rad(declination))))

	solarNoon := (720.0 - 4.0*longitude - eqOfTime) / 1440.0
	sunsetFrac := solarNoon + hourAngle*4.0/1440.0

	ms := int64(sunsetFrac * 24 * 60 * 60 * 1000)
	base := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(ms) * time.Millisecond)
}

// julianDay is the Julian date at 0h UTC of the Gregorian calendar
// date.
func julianDay(year, month, day int) float64 {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn) - 0.5
}

func rad(d float64) float64 { return d * math.Pi / 180.0 }
func deg(r float64) float64 { return r * 180.0 / math.Pi }
