package lineage

// Experiment bundles everything tracked for one time-lapse movie: the
// detected positions, the candidate link graph with its selected lineage, and
// the per-position and per-link metadata. Each pipeline run owns its
// experiment exclusively; use CopySelected to hand independent copies to
// independent runs.
type Experiment struct {
	Name         string
	Positions    *PositionSet
	Links        *LinkGraph
	PositionData *PositionData
	LinkData     *LinkData
	Resolution   Resolution
}

// NewExperiment creates an empty experiment.
func NewExperiment(name string) *Experiment {
	return &Experiment{
		Name:         name,
		Positions:    NewPositionSet(),
		Links:        NewLinkGraph(),
		PositionData: NewPositionData(),
		LinkData:     NewLinkData(),
	}
}

// CopyOptions selects which parts of an experiment CopySelected clones. Parts
// that are not copied start out empty in the clone, never shared.
type CopyOptions struct {
	Positions    bool
	Links        bool
	PositionData bool
	LinkData     bool
}

// CopySelected returns a new experiment with independent copies of the
// selected parts. Mutating the copy never affects the original, so multiple
// runs over the same data stay isolated.
func (e *Experiment) CopySelected(opts CopyOptions) *Experiment {
	clone := NewExperiment(e.Name)
	clone.Resolution = e.Resolution
	if opts.Positions {
		clone.Positions = e.Positions.Copy()
	}
	if opts.Links {
		clone.Links = e.Links.Copy()
	}
	if opts.PositionData {
		clone.PositionData = e.PositionData.Copy()
	}
	if opts.LinkData {
		clone.LinkData = e.LinkData.Copy()
	}
	return clone
}

// AddPosition inserts a detected position.
func (e *Experiment) AddPosition(p Position) {
	e.Positions.Add(p)
}

// RemovePosition deletes a position together with its links and metadata.
func (e *Experiment) RemovePosition(p Position) {
	e.Links.RemoveLinksOfPosition(p)
	e.PositionData.RemoveAllOf(p)
	e.LinkData.RemoveAllOf(p)
	e.Positions.Remove(p)
}

// RemovePositions deletes all given positions, links and metadata included.
func (e *Experiment) RemovePositions(positions []Position) {
	for _, p := range positions {
		e.RemovePosition(p)
	}
}

// FirstTimePointNumber returns the first time point of the experiment.
func (e *Experiment) FirstTimePointNumber() int {
	return e.Positions.FirstTimePointNumber()
}

// LastTimePointNumber returns the last time point of the experiment.
func (e *Experiment) LastTimePointNumber() int {
	return e.Positions.LastTimePointNumber()
}
