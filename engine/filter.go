package engine

// Filter decides which polygons a query may visit and what entering them
// costs.
type Filter struct {
	IncludeFlags uint16
	ExcludeFlags uint16
	areaCost     [MaxAreas]float32
}

// NewFilter accepts every flag and prices every area at 1.
func NewFilter() *Filter {
	f := &Filter{IncludeFlags: FlagAll}
	for i := range f.areaCost {
		f.areaCost[i] = 1
	}
	return f
}

func (f *Filter) Pass(flags uint16) bool {
	if f == nil {
		return flags != 0
	}
	return flags&f.IncludeFlags != 0 && flags&f.ExcludeFlags == 0
}

func (f *Filter) AreaCost(area int) float32 {
	if f == nil || area < 0 || area >= MaxAreas {
		return 1
	}
	return f.areaCost[area]
}

func (f *Filter) SetAreaCost(area int, cost float32) {
	if f == nil || area < 0 || area >= MaxAreas {
		return
	}
	f.areaCost[area] = cost
}

// MinAreaCost is the cheapest area price, used to keep heuristics
// admissible.
func (f *Filter) MinAreaCost() float32 {
	if f == nil {
		return 1
	}
	min := f.areaCost[0]
	for _, c := range f.areaCost[1:] {
		if c < min {
			min = c
		}
	}
	return min
}
