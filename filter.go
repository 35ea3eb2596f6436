package socketcan

import "fmt"

// MaxFilters is the size of the kernel's per-socket filter table
// (CAN_RAW_FILTER_MAX).
const MaxFilters = 512

// Filter matches received identifiers against a reference identifier under a
// mask: a candidate is accepted when candidate&Mask == ID&Mask. Matching
// runs on the raw identifier word, so flag bits take part when the mask
// covers them.
type Filter struct {
	ID   uint32
	Mask uint32
}

// NewFilter builds a filter from an identifier and mask. Any combination is
// valid.
func NewFilter(id, mask uint32) Filter {
	return Filter{ID: id, Mask: mask}
}

// AcceptAll returns a filter that matches every frame.
func AcceptAll() Filter {
	return Filter{}
}

// NewStandardFilter matches data frames with the given standard identifier.
// The default mask covers the 11 identifier bits plus the extended-format
// and RTR flag bits, so extended and remote frames with the same numeric
// identifier are excluded.
func NewStandardFilter(id uint32) Filter {
	return Filter{
		ID:   id & MaskStandard,
		Mask: MaskStandard | FlagExtended | FlagRemote,
	}
}

// NewExtendedFilter matches data frames with the given extended identifier.
func NewExtendedFilter(id uint32) Filter {
	return Filter{
		ID:   id&MaskExtended | FlagExtended,
		Mask: MaskExtended | FlagExtended | FlagRemote,
	}
}

// AllowRemote widens the filter to also accept remote frames by dropping the
// RTR bit from the mask. Setting the bit on the identifier instead would
// accept only remote frames, which is not what the name promises.
func (f Filter) AllowRemote() Filter {
	f.Mask &^= FlagRemote
	return f
}

// Matches reports whether a raw identifier word passes the filter.
func (f Filter) Matches(id uint32) bool {
	return id&f.Mask == f.ID&f.Mask
}

// filterSink installs a complete filter table downstream in one update.
type filterSink interface {
	setFilters([]Filter) error
}

// FilterGroup is an ordered set of filters bound to one channel. Every
// mutation pushes the complete table downstream in a single update, so the
// transport never observes a half-applied set. A group is not internally
// synchronized; guard the owning channel externally when sharing it across
// goroutines.
type FilterGroup struct {
	sink    filterSink
	filters []Filter
}

func newFilterGroup(sink filterSink) *FilterGroup {
	return &FilterGroup{sink: sink}
}

// Add appends one filter and reinstalls the table. It fails without mutating
// the group when the table is at capacity or when the downstream update is
// rejected.
func (g *FilterGroup) Add(f Filter) error {
	if len(g.filters) >= MaxFilters {
		return fmt.Errorf("socketcan: filter table full (max %d)", MaxFilters)
	}
	next := append(g.filters[:len(g.filters):len(g.filters)], f)
	if err := g.sink.setFilters(next); err != nil {
		return err
	}
	g.filters = next
	return nil
}

// Set replaces the whole filter table atomically.
func (g *FilterGroup) Set(filters []Filter) error {
	if len(filters) > MaxFilters {
		return fmt.Errorf("socketcan: %d filters exceed table capacity %d", len(filters), MaxFilters)
	}
	next := make([]Filter, len(filters))
	copy(next, filters)
	if err := g.sink.setFilters(next); err != nil {
		return err
	}
	g.filters = next
	return nil
}

// Clear installs the empty filter table. On a raw socket the kernel then
// delivers no frames until a new filter is added.
func (g *FilterGroup) Clear() error {
	if err := g.sink.setFilters(nil); err != nil {
		return err
	}
	g.filters = g.filters[:0]
	return nil
}

// Len returns the number of filters currently in the group.
func (g *FilterGroup) Len() int { return len(g.filters) }

// Filters returns a copy of the current table.
func (g *FilterGroup) Filters() []Filter {
	out := make([]Filter, len(g.filters))
	copy(out, g.filters)
	return out
}
