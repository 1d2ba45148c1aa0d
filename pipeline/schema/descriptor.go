package schema

import "strings"

// Column is one discovered column: name plus the engine's type tag.
type Column struct {
	Name string
	Type string
}

// Descriptor is the ordered column metadata of a probed dataset. It never
// carries row data; probing materializes zero rows. Lookups are
// case-insensitive.
type Descriptor struct {
	columns []Column
	index   map[string]int
}

// NewDescriptor builds a descriptor preserving column order.
func NewDescriptor(columns []Column) *Descriptor {
	d := &Descriptor{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		key := strings.ToLower(c.Name)
		if _, exists := d.index[key]; !exists {
			d.index[key] = i
		}
	}
	return d
}

// Columns returns the ordered column list.
func (d *Descriptor) Columns() []Column {
	return d.columns
}

// Names returns the ordered column names.
func (d *Descriptor) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the column count.
func (d *Descriptor) Len() int {
	return len(d.columns)
}

// Lookup finds a column by name, case-insensitively.
func (d *Descriptor) Lookup(name string) (Column, bool) {
	i, ok := d.index[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// Has reports whether a column exists, case-insensitively.
func (d *Descriptor) Has(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}

// HasPrefixed reports whether any column name equals or is prefixed by the
// given name, case-insensitively. Used for bbox struct columns that may be
// flattened into bbox_xmin/bbox_xmax style siblings.
func (d *Descriptor) HasPrefixed(name string) bool {
	lower := strings.ToLower(name)
	for _, c := range d.columns {
		if strings.HasPrefix(strings.ToLower(c.Name), lower) {
			return true
		}
	}
	return false
}
