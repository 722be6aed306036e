package csvbind

// Column is the explicit annotation of a slot. A slot without a Column uses
// its own name, no ordinal, nullable, NumberAny and the general format.
type Column struct {
	// Name is the CSV column name. Empty keeps the slot name.
	Name string `yaml:"name"`
	// Ordinal is the 1-based column position. Zero means unassigned; such
	// columns sort after every numbered one.
	Ordinal int `yaml:"ordinal"`
	// Required makes the slot non-nullable: a missing or empty value is an error.
	Required bool `yaml:"required"`
	// NumberStyle limits the decorations accepted when reading numbers.
	NumberStyle NumberStyle `yaml:"number_style"`
	// DateStyle adjusts time parsing.
	DateStyle DateStyle `yaml:"date_style"`
	// Format is the output format: a numeric format such as "N2" or "X4",
	// or a time layout.
	Format string `yaml:"format"`
	// Width is the number of characters of the column in fixed-width mode.
	Width int `yaml:"width"`
}

// Descriptor is the resolved description of one slot within a Schema.
type Descriptor struct {
	Name        string
	Kind        Kind
	Ordinal     int
	Nullable    bool
	NumberStyle NumberStyle
	DateStyle   DateStyle
	Format      string
	Width       int
	// Annotated reports that the slot carries an explicit Column.
	Annotated bool

	bits int
	slot int
}

func describe(index int, name string, kind Kind, bits int, col *Column) Descriptor {
	d := Descriptor{
		Name:     name,
		Kind:     kind,
		Nullable: true,
		bits:     bits,
		slot:     index,
	}
	if col == nil {
		return d
	}
	d.Annotated = true
	if col.Name != "" {
		d.Name = col.Name
	}
	d.Ordinal = col.Ordinal
	d.Nullable = !col.Required
	d.NumberStyle = col.NumberStyle
	d.DateStyle = col.DateStyle
	d.Format = col.Format
	d.Width = col.Width
	return d
}
