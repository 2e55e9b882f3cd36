package thermalconfig

// ElementKind indexes Grammar.Elements.
type ElementKind int

// AttribKind indexes Grammar.Attribs.
type AttribKind int

// ElementSet is a bit set of element kinds.
type ElementSet uint32

// AttribSet is a bit set of attribute kinds.
type AttribSet uint32

// Elements builds an ElementSet from kinds.
func Elements(kinds ...ElementKind) ElementSet {
	var s ElementSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}

	return s
}

// Has reports whether k is in the set.
func (s ElementSet) Has(k ElementKind) bool {
	return s&(1<<uint(k)) != 0
}

// Attribs builds an AttribSet from kinds.
func Attribs(kinds ...AttribKind) AttribSet {
	var s AttribSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}

	return s
}

// Has reports whether k is in the set.
func (s AttribSet) Has(k AttribKind) bool {
	return s&(1<<uint(k)) != 0
}

// Handler runs the semantic action of an element once its attributes
// have been validated.
type Handler func(s *State, attrs Attributes) error

// Element describes one element of the configuration language.
type Element struct {
	Name            string
	ValidAttribs    AttribSet
	RequiredAttribs AttribSet
	ValidChildren   ElementSet
	Start           Handler
	End             Handler
}

// Grammar is the static description of a configuration language: the
// elements, the attribute names, and which elements may open the document.
type Grammar struct {
	Elements []Element
	Attribs  []string
	Root     ElementSet
}

// lookup finds the element called name among the allowed kinds.
func (g *Grammar) lookup(name string, allowed ElementSet) (ElementKind, bool) {
	for i := range g.Elements {
		k := ElementKind(i)
		if allowed.Has(k) && g.Elements[i].Name == name {
			return k, true
		}
	}

	return 0, false
}

// attribKind finds the attribute called name among the allowed kinds.
func (g *Grammar) attribKind(name string, allowed AttribSet) (AttribKind, bool) {
	for i, n := range g.Attribs {
		k := AttribKind(i)
		if allowed.Has(k) && n == name {
			return k, true
		}
	}

	return 0, false
}

// Attributes holds the validated attribute values of one element.
type Attributes map[AttribKind]string

// Get returns the value of an attribute and whether it was present.
func (a Attributes) Get(k AttribKind) (string, bool) {
	v, ok := a[k]
	return v, ok
}

// For faster parsing put more commonly-used elements first
const (
	ElemDevice ElementKind = iota
	ElemThrottling
	ElemTrip
	ElemThermalHAL
)

const (
	AttrName AttribKind = iota
	AttrType
	AttrIndex
	AttrStub
	AttrThreshold
	AttrShutdown
	AttrThresholdVRMin
	AttrTripName
	AttrTripType
	AttrTripIndex
)

var thermalGrammar = Grammar{
	Elements: []Element{
		ElemDevice: {
			Name:            "device",
			ValidAttribs:    Attribs(AttrName, AttrType, AttrIndex, AttrStub),
			RequiredAttribs: Attribs(AttrName, AttrType, AttrIndex),
			ValidChildren:   Elements(ElemThrottling),
			Start:           deviceStart,
			End:             deviceEnd,
		},
		ElemThrottling: {
			Name:            "throttling",
			ValidAttribs:    Attribs(AttrThreshold, AttrShutdown, AttrThresholdVRMin),
			RequiredAttribs: Attribs(AttrThreshold, AttrShutdown, AttrThresholdVRMin),
			ValidChildren:   Elements(ElemTrip),
			Start:           throttlingStart,
		},
		ElemTrip: {
			Name:            "trip",
			ValidAttribs:    Attribs(AttrTripName, AttrTripType, AttrTripIndex),
			RequiredAttribs: Attribs(AttrTripName, AttrTripType, AttrTripIndex),
			Start:           tripStart,
		},
		ElemThermalHAL: {
			Name:          "thermalhal",
			ValidChildren: Elements(ElemDevice),
		},
	},
	Attribs: []string{
		AttrName:           "name",
		AttrType:           "type",
		AttrIndex:          "index",
		AttrStub:           "stub",
		AttrThreshold:      "threshold",
		AttrShutdown:       "shutdown",
		AttrThresholdVRMin: "threshold_vr_min",
		AttrTripName:       "trip_name",
		AttrTripType:       "trip_type",
		AttrTripIndex:      "trip_index",
	},
	Root: Elements(ElemThermalHAL),
}

// ThermalGrammar returns the grammar of thermal.<product>.xml documents.
// The returned table must not be modified.
func ThermalGrammar() *Grammar {
	return &thermalGrammar
}
