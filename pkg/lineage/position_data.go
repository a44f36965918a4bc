package lineage

// Well-known per-position data keys. The numeric values are penalties in
// log-odds units (lower means more certain to happen) or raw probabilities,
// produced by the upstream neural networks.
const (
	DataAppearancePenalty    = "appearance_penalty"
	DataDisappearancePenalty = "disappearance_penalty"
	DataDivisionPenalty      = "division_penalty"
	DataDivisionProbability  = "division_probability"
)

// PositionData stores scalar metadata and markers per position. Values may be
// missing for any position; callers handle absence with a documented default.
type PositionData struct {
	values  map[Position]map[string]float64
	markers map[Position]map[string]string
}

// NewPositionData creates an empty store.
func NewPositionData() *PositionData {
	return &PositionData{
		values:  make(map[Position]map[string]float64),
		markers: make(map[Position]map[string]string),
	}
}

// Get returns the stored value for the key, with ok=false when absent.
func (d *PositionData) Get(p Position, key string) (float64, bool) {
	v, ok := d.values[p][key]
	return v, ok
}

// GetOr returns the stored value, or fallback when absent.
func (d *PositionData) GetOr(p Position, key string, fallback float64) float64 {
	if v, ok := d.values[p][key]; ok {
		return v
	}
	return fallback
}

// Set stores a value for the key.
func (d *PositionData) Set(p Position, key string, value float64) {
	m := d.values[p]
	if m == nil {
		m = make(map[string]float64)
		d.values[p] = m
	}
	m[key] = value
}

// RemoveAllOf drops every value and marker stored for the position.
func (d *PositionData) RemoveAllOf(p Position) {
	delete(d.values, p)
	delete(d.markers, p)
}

func (d *PositionData) marker(p Position, key string) string {
	return d.markers[p][key]
}

func (d *PositionData) setMarker(p Position, key, value string) {
	if value == "" {
		if m := d.markers[p]; m != nil {
			delete(m, key)
			if len(m) == 0 {
				delete(d.markers, p)
			}
		}
		return
	}
	m := d.markers[p]
	if m == nil {
		m = make(map[string]string)
		d.markers[p] = m
	}
	m[key] = value
}

// Copy returns an independent copy of the store.
func (d *PositionData) Copy() *PositionData {
	clone := NewPositionData()
	for p, m := range d.values {
		cloneM := make(map[string]float64, len(m))
		for k, v := range m {
			cloneM[k] = v
		}
		clone.values[p] = cloneM
	}
	for p, m := range d.markers {
		cloneM := make(map[string]string, len(m))
		for k, v := range m {
			cloneM[k] = v
		}
		clone.markers[p] = cloneM
	}
	return clone
}
