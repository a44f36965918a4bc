package lineage

// EndMarker explains why a track ends before the last time point.
type EndMarker string

const (
	EndMarkerDeath     EndMarker = "death"
	EndMarkerShed      EndMarker = "shed"
	EndMarkerOutOfView EndMarker = "out_of_view"
)

// StartMarker explains why a track starts after the first time point.
type StartMarker string

const (
	StartMarkerGoesIntoView StartMarker = "goes_into_view"
)

const (
	markerTrackEnd   = "track_end"
	markerTrackStart = "track_start"
	markerUncertain  = "uncertain"
	markerError      = "error"
)

// SetTrackEndMarker records why the position's track ends here. An empty
// marker clears it.
func (d *PositionData) SetTrackEndMarker(p Position, marker EndMarker) {
	d.setMarker(p, markerTrackEnd, string(marker))
}

// TrackEndMarker returns the end marker, or "" when none is set.
func (d *PositionData) TrackEndMarker(p Position) EndMarker {
	return EndMarker(d.marker(p, markerTrackEnd))
}

// SetTrackStartMarker records why the position's track starts here. An empty
// marker clears it.
func (d *PositionData) SetTrackStartMarker(p Position, marker StartMarker) {
	d.setMarker(p, markerTrackStart, string(marker))
}

// TrackStartMarker returns the start marker, or "" when none is set.
func (d *PositionData) TrackStartMarker(p Position) StartMarker {
	return StartMarker(d.marker(p, markerTrackStart))
}

// SetUncertain flags the position as an uncertain detection.
func (d *PositionData) SetUncertain(p Position, uncertain bool) {
	if uncertain {
		d.setMarker(p, markerUncertain, "true")
	} else {
		d.setMarker(p, markerUncertain, "")
	}
}

// IsUncertain reports whether the detection itself is in doubt.
func (d *PositionData) IsUncertain(p Position) bool {
	return d.marker(p, markerUncertain) == "true"
}

// SetErrorMarker records a consistency error code for the position. An empty
// code clears any previous marker.
func (d *PositionData) SetErrorMarker(p Position, code string) {
	d.setMarker(p, markerError, code)
}

// ErrorMarker returns the recorded consistency error code, or "" when the
// position is considered correct.
func (d *PositionData) ErrorMarker(p Position) string {
	return d.marker(p, markerError)
}

// IsLive reports whether the cell is still considered alive at this position,
// which is the case unless a death or shedding end marker was set.
func (d *PositionData) IsLive(p Position) bool {
	m := d.TrackEndMarker(p)
	return m != EndMarkerDeath && m != EndMarkerShed
}
