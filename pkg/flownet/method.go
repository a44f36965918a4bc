package flownet

// Method selects the solving strategy. The set is closed: configuration
// strings are resolved once with ParseMethod, never compared at call time.
type Method int

const (
	// MethodFlowBased solves the relaxed problem with successive shortest
	// paths on the tracking flow network. The default.
	MethodFlowBased Method = iota

	// MethodMagnusson greedily accepts links in ascending cost order under
	// the degree constraints, in the spirit of global track linking by
	// Viterbi-style score ordering. Faster, less exact.
	MethodMagnusson
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodFlowBased:
		return "FlowBased"
	case MethodMagnusson:
		return "Magnusson"
	default:
		return "Unknown"
	}
}

// ParseMethod resolves a configuration string to a Method. Unknown names fall
// back to MethodFlowBased with ok=false, so the caller can log a warning and
// continue.
func ParseMethod(name string) (method Method, ok bool) {
	switch name {
	case "FlowBased", "":
		return MethodFlowBased, true
	case "Magnusson":
		return MethodMagnusson, true
	default:
		return MethodFlowBased, false
	}
}
