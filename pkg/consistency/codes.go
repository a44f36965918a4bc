// Package consistency classifies every position in a finished lineage as
// correct or carrying one specific error, based on local graph shape and
// penalty thresholds. It only annotates; it never changes links. Topology
// violations are surfaced here rather than auto-corrected.
package consistency

// ErrorCode identifies one class of lineage inconsistency.
type ErrorCode string

const (
	// ErrorNone means no inconsistency was found.
	ErrorNone ErrorCode = ""

	// ErrorUncertainPosition flags a detection that was externally marked
	// as possibly not a cell.
	ErrorUncertainPosition ErrorCode = "UNCERTAIN_POSITION"

	// ErrorTooManyDaughterCells flags a position with more than two
	// successors, a hard topology violation.
	ErrorTooManyDaughterCells ErrorCode = "TOO_MANY_DAUGHTER_CELLS"

	// ErrorTrackEnd flags a track that ends mid-experiment without an
	// explanation.
	ErrorTrackEnd ErrorCode = "TRACK_END"

	// ErrorLowDivisionScore flags a division the division network does not
	// believe in.
	ErrorLowDivisionScore ErrorCode = "LOW_DIVISION_SCORE"

	// ErrorShortCellCycle flags a mother that divided again too soon after
	// its own birth.
	ErrorShortCellCycle ErrorCode = "SHORT_CELL_CYCLE"

	// ErrorMissedDivision flags a position the division network expected to
	// divide but that continues as a single cell.
	ErrorMissedDivision ErrorCode = "MISSED_DIVISION"

	// ErrorNoPastPosition flags a cell that popped up out of nothing.
	ErrorNoPastPosition ErrorCode = "NO_PAST_POSITION"

	// ErrorCellMerge flags a position with two or more predecessors, which
	// is biologically impossible.
	ErrorCellMerge ErrorCode = "CELL_MERGE"

	// ErrorLowLinkScore flags a link the linking network does not believe
	// in.
	ErrorLowLinkScore ErrorCode = "LOW_LINK_SCORE"

	// ErrorMovedTooFast flags a cell that moved implausibly far since its
	// predecessor.
	ErrorMovedTooFast ErrorCode = "MOVED_TOO_FAST"
)

// Severity distinguishes advisory warnings from hard violations.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Severity returns how serious the error is. Topology violations and
// impossible cell cycles are hard errors; everything else is advisory.
func (c ErrorCode) Severity() Severity {
	switch c {
	case ErrorTooManyDaughterCells, ErrorNoPastPosition, ErrorCellMerge, ErrorShortCellCycle:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Message returns a user-facing description of the error.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorUncertainPosition:
		return "Uncertain if there actually is a cell here."
	case ErrorTooManyDaughterCells:
		return "This cell has more than two daughter cells."
	case ErrorTrackEnd:
		return "This cell has no links to the future. Please check if this is correct."
	case ErrorLowDivisionScore:
		return "This division is maybe wrong; the division score is low."
	case ErrorShortCellCycle:
		return "This division appeared very quickly after the previous. One of those is likely wrong."
	case ErrorMissedDivision:
		return "A division was probably missed here; found a high division score."
	case ErrorNoPastPosition:
		return "This cell popped up out of nothing."
	case ErrorCellMerge:
		return "Two cells merged together into this cell."
	case ErrorLowLinkScore:
		return "This is probably not a correct link; the link score is low."
	case ErrorMovedTooFast:
		return "This cell just moved very quickly. The link coming from the past may be wrong."
	default:
		return "No error."
	}
}
