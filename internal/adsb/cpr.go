package adsb

import "math"

// CPRFrame holds the raw coordinates of one airborne position message.
type CPRFrame struct {
	Lat       int
	Lon       int
	Timestamp int64
}

// Position is a resolved geodetic position in degrees.
type Position struct {
	Latitude  float64
	Longitude float64
}

const (
	airDlatEven = 360.0 / 60.0
	airDlatOdd  = 360.0 / 59.0
)

// nlBreakpoints are the latitudes at which the number of longitude zones
// drops by one, starting from 59 zones at the equator.
var nlBreakpoints = [...]float64{
	10.47047130, 14.82817437, 18.18626357, 21.02939493, 23.54504487,
	25.82924707, 27.93898710, 29.91135686, 31.77209708, 33.53993436,
	35.22899598, 36.85025108, 38.41241892, 39.92256684, 41.38651832,
	42.80914012, 44.19454951, 45.54626723, 46.86733252, 48.16039128,
	49.42776439, 50.67150166, 51.89342469, 53.09516153, 54.27817472,
	55.44378444, 56.59318756, 57.72747354, 58.84763776, 59.95459277,
	61.04917774, 62.13216659, 63.20427479, 64.26616523, 65.31845310,
	66.36171008, 67.39646774, 68.42322022, 69.44242631, 70.45451075,
	71.45986473, 72.45884545, 73.45177442, 74.43893416, 75.42056257,
	76.39684391, 77.36789461, 78.33374083, 79.29428225, 80.24923213,
	81.19801349, 82.13956981, 83.07199445, 83.99173563, 84.89166191,
	85.75541621, 86.53536998, 87.00000000,
}

// cprNL returns the number of longitude zones at a latitude.
func cprNL(lat float64) int {
	lat = math.Abs(lat)
	for i, limit := range nlBreakpoints {
		if lat < limit {
			return 59 - i
		}
	}
	return 1
}

// cprModInt performs an always positive modulo
func cprModInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

// cprNFunction returns the number of longitude zones for a frame parity.
func cprNFunction(lat float64, odd int) int {
	nl := cprNL(lat) - odd
	if nl < 1 {
		nl = 1
	}
	return nl
}

// cprDlonFunction returns the longitude zone width for a frame parity.
func cprDlonFunction(lat float64, odd int) float64 {
	return 360.0 / float64(cprNFunction(lat, odd))
}

// DecodeGlobalCPR resolves a position from an even and an odd frame. The
// newer frame is the basis of the result; the even frame must be strictly
// newer to be chosen. It reports false when the frames straddle a
// longitude zone boundary or yield an impossible latitude.
func DecodeGlobalCPR(even, odd CPRFrame) (Position, bool) {
	lat0 := float64(even.Lat)
	lat1 := float64(odd.Lat)
	lon0 := float64(even.Lon)
	lon1 := float64(odd.Lon)

	// latitude index
	j := int(math.Floor((59*lat0-60*lat1)/CPRMax + 0.5))

	rlat0 := airDlatEven * (float64(cprModInt(j, 60)) + lat0/CPRMax)
	rlat1 := airDlatOdd * (float64(cprModInt(j, 59)) + lat1/CPRMax)
	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return Position{}, false
	}
	if cprNL(rlat0) != cprNL(rlat1) {
		return Position{}, false
	}

	var rlat, rlon float64
	if even.Timestamp > odd.Timestamp {
		nl := cprNL(rlat0)
		m := int(math.Floor((lon0*float64(nl-1)-lon1*float64(nl))/CPRMax + 0.5))
		ni := cprNFunction(rlat0, 0)
		rlon = cprDlonFunction(rlat0, 0) * (float64(cprModInt(m, ni)) + lon0/CPRMax)
		rlat = rlat0
	} else {
		nl := cprNL(rlat1)
		m := int(math.Floor((lon0*float64(nl-1)-lon1*float64(nl))/CPRMax + 0.5))
		ni := cprNFunction(rlat1, 1)
		rlon = cprDlonFunction(rlat1, 1) * (float64(cprModInt(m, ni)) + lon1/CPRMax)
		rlat = rlat1
	}

	if rlon > 180 {
		rlon -= 360
	}
	return Position{Latitude: rlat, Longitude: rlon}, true
}

// withinCPRWindow reports whether two frame timestamps may be combined.
func withinCPRWindow(a, b int64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= CPRWindow
}
