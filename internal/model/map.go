package model

// Layer is an ordered group of objects drawn together.
type Layer struct {
	Name    string
	Objects []Object
}

func (l *Layer) AddObject(o Object) {
	l.Objects = append(l.Objects, o)
}

// Map is the in-memory representation of a whole map: the color table,
// the symbol set, the object layers, template references, notes and view.
type Map struct {
	Colors    []*Color
	Symbols   []Symbol
	Layers    []*Layer
	Templates []*Template
	Notes     string

	// ScaleDenominator is the map scale, e.g. 15000 for 1:15000.
	ScaleDenominator int

	view *View

	undefinedPoint *PointSymbol
	undefinedLine  *LineSymbol
}

// NewMap creates an empty map with one layer and the undefined symbols
// installed.
func NewMap() *Map {
	m := &Map{
		ScaleDenominator: 15000,
		Layers:           []*Layer{{Name: "default layer"}},
	}

	m.undefinedPoint = &PointSymbol{}
	m.undefinedPoint.Name = "Undefined point"
	m.undefinedPoint.Number = [3]int{-1, -1, -1}
	m.undefinedPoint.Helper = true

	m.undefinedLine = &LineSymbol{LineWidth: 120}
	m.undefinedLine.Name = "Undefined line"
	m.undefinedLine.Number = [3]int{-1, -1, -1}
	m.undefinedLine.Helper = true

	return m
}

// CurrentLayer returns the layer objects are imported into.
func (m *Map) CurrentLayer() *Layer { return m.Layers[0] }

// UndefinedPoint is the placeholder symbol for point objects whose symbol
// reference cannot be resolved.
func (m *Map) UndefinedPoint() *PointSymbol { return m.undefinedPoint }

// UndefinedLine is the placeholder symbol for path objects whose symbol
// reference cannot be resolved.
func (m *Map) UndefinedLine() *LineSymbol { return m.undefinedLine }

func (m *Map) AddColor(c *Color) {
	m.Colors = append(m.Colors, c)
}

func (m *Map) AddSymbol(s Symbol) {
	m.Symbols = append(m.Symbols, s)
}

func (m *Map) AddTemplate(t *Template) {
	m.Templates = append(m.Templates, t)
}

// FindColorIndex returns the dense table index of the color, or -1.
func (m *Map) FindColorIndex(c *Color) int {
	for i, mc := range m.Colors {
		if mc == c {
			return i
		}
	}
	return -1
}

// FindSymbolIndex returns the symbol table index of the symbol, or -1.
func (m *Map) FindSymbolIndex(s Symbol) int {
	for i, ms := range m.Symbols {
		if ms == s {
			return i
		}
	}
	return -1
}

// NumObjects counts the objects across all layers.
func (m *Map) NumObjects() int {
	n := 0
	for _, l := range m.Layers {
		n += len(l.Objects)
	}
	return n
}

// SymbolUseClosure computes, for each symbol table index, the set of symbol
// table indexes rendered when that symbol is drawn: the symbol itself plus,
// transitively, every dependency (combined symbol parts).
func (m *Map) SymbolUseClosure() []map[int]bool {
	index := make(map[Symbol]int, len(m.Symbols))
	for i, s := range m.Symbols {
		index[s] = i
	}

	closure := make([]map[int]bool, len(m.Symbols))
	var resolve func(i int) map[int]bool
	resolve = func(i int) map[int]bool {
		if closure[i] != nil {
			return closure[i]
		}
		set := map[int]bool{i: true}
		closure[i] = set // break dependency cycles
		for _, dep := range m.Symbols[i].Dependencies() {
			if dep == nil {
				continue
			}
			j, ok := index[dep]
			if !ok {
				continue
			}
			for k := range resolve(j) {
				set[k] = true
			}
		}
		return set
	}
	for i := range m.Symbols {
		resolve(i)
	}
	return closure
}

// View is the saved viewport: map position of the view center and the
// zoom factor.
type View struct {
	CenterX, CenterY int64 // micrometers
	zoom             float64
}

const (
	zoomMin = 1.0 / 16
	zoomMax = 512.0
)

// NewView creates a view at the origin with zoom 1.
func NewView() *View { return &View{zoom: 1} }

func (v *View) Zoom() float64 { return v.zoom }

// SetZoom applies the factor if it lies within the supported zoom range;
// out-of-range values leave the current zoom unchanged.
func (v *View) SetZoom(zoom float64) {
	if zoom < zoomMin || zoom > zoomMax {
		return
	}
	v.zoom = zoom
}

// SetView installs the saved viewport.
func (m *Map) SetView(v *View) { m.view = v }

// View returns the saved viewport, or nil when none was loaded.
func (m *Map) View() *View { return m.view }
