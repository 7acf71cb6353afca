package aqi

// Segment is one piecewise-linear interpolation segment of a breakpoint
// table: concentrations in [CLo, CHi] map linearly onto indices [ILo, IHi].
// Adjacent segments share their boundary concentration; when scanning
// ascending, the lower segment wins at the shared point.
type Segment struct {
	CLo float64
	CHi float64
	ILo float64
	IHi float64
}

// Table is an immutable breakpoint table for one pollutant.
type Table struct {
	// Pollutant identifies which concentration this table applies to.
	Pollutant Pollutant

	// Segments are ordered by ascending concentration range.
	Segments []Segment
}

// Index breakpoints shared by all particulate tables.
// Kept as named constants so the tables below read like the regulatory
// reference they were transcribed from.
const (
	idxGood       = 0
	idxModerate   = 50
	idxSensitive  = 100
	idxUnhealthy  = 150
	idxVery       = 200
	idxHazardous  = 300
	idxHazardous2 = 400
	idxTop        = 500
)

// PM25 is the breakpoint table for fine particulates (PM2.5, µg/m³).
var PM25 = Table{
	Pollutant: PollutantPM25,
	Segments: []Segment{
		{0, 12, idxGood, idxModerate},
		{12, 35.4, idxModerate, idxSensitive},
		{35.4, 55.4, idxSensitive, idxUnhealthy},
		{55.4, 150.4, idxUnhealthy, idxVery},
		{150.4, 250.4, idxVery, idxHazardous},
		{250.4, 350.4, idxHazardous, idxHazardous2},
		{350.4, 500.4, idxHazardous2, idxTop},
	},
}

// PM10Legacy is the breakpoint table for coarse particulates (PM10, µg/m³)
// as shipped in the original firmware. The fourth segment is inverted
// (254 down to 135): the upstream source transposed the 354 breakpoint as
// 135 and fielded devices have published values computed against it ever
// since. The inverted segment can never match, so concentrations in
// (254, 354] resolve through the following segment instead and the mapping
// is not monotonic around that boundary. Kept verbatim for compatibility;
// see PM10Corrected for the fixed table.
var PM10Legacy = Table{
	Pollutant: PollutantPM10,
	Segments: []Segment{
		{0, 54, idxGood, idxModerate},
		{54, 154, idxModerate, idxSensitive},
		{154, 254, idxSensitive, idxUnhealthy},
		{254, 135, idxUnhealthy, idxVery}, // inverted, never matches
		{135, 424, idxVery, idxHazardous},
		{424, 504, idxHazardous, idxHazardous2},
		{504, 604, idxHazardous2, idxTop},
	},
}

// PM10Corrected is the PM10 table with the transcription error fixed
// (354 restored as the boundary between the Unhealthy and Very Unhealthy
// segments, per the EPA reference breakpoints).
var PM10Corrected = Table{
	Pollutant: PollutantPM10,
	Segments: []Segment{
		{0, 54, idxGood, idxModerate},
		{54, 154, idxModerate, idxSensitive},
		{154, 254, idxSensitive, idxUnhealthy},
		{254, 354, idxUnhealthy, idxVery},
		{354, 424, idxVery, idxHazardous},
		{424, 504, idxHazardous, idxHazardous2},
		{504, 604, idxHazardous2, idxTop},
	},
}

// PM10Table selects the PM10 table variant.
func PM10Table(corrected bool) Table {
	if corrected {
		return PM10Corrected
	}
	return PM10Legacy
}
