package lineage

// Well-known per-link data keys.
const (
	DataLinkPenalty         = "link_penalty"
	DataLinkProbability     = "link_probability"
	DataMarginalProbability = "marginal_probability"
)

type linkKey struct {
	a, b Position
}

// orderedKey normalizes a link so the earlier position always comes first.
func orderedKey(p1, p2 Position) linkKey {
	if p2.T < p1.T {
		p1, p2 = p2, p1
	}
	return linkKey{p1, p2}
}

// LinkData stores scalar metadata per candidate link. As with PositionData,
// values may be missing and are recovered with defaults by the callers.
type LinkData struct {
	values map[linkKey]map[string]float64
}

// NewLinkData creates an empty store.
func NewLinkData() *LinkData {
	return &LinkData{values: make(map[linkKey]map[string]float64)}
}

// Get returns the stored value for the key, with ok=false when absent.
func (d *LinkData) Get(p1, p2 Position, key string) (float64, bool) {
	v, ok := d.values[orderedKey(p1, p2)][key]
	return v, ok
}

// GetOr returns the stored value, or fallback when absent.
func (d *LinkData) GetOr(p1, p2 Position, key string, fallback float64) float64 {
	if v, ok := d.values[orderedKey(p1, p2)][key]; ok {
		return v
	}
	return fallback
}

// Set stores a value for the key.
func (d *LinkData) Set(p1, p2 Position, key string, value float64) {
	k := orderedKey(p1, p2)
	m := d.values[k]
	if m == nil {
		m = make(map[string]float64)
		d.values[k] = m
	}
	m[key] = value
}

// RemoveAllOf drops every value stored for links touching the position.
func (d *LinkData) RemoveAllOf(p Position) {
	for k := range d.values {
		if k.a == p || k.b == p {
			delete(d.values, k)
		}
	}
}

// Copy returns an independent copy of the store.
func (d *LinkData) Copy() *LinkData {
	clone := NewLinkData()
	for k, m := range d.values {
		cloneM := make(map[string]float64, len(m))
		for key, v := range m {
			cloneM[key] = v
		}
		clone.values[k] = cloneM
	}
	return clone
}
