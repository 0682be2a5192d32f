// internal/domain/models/palette.go
package models

// Palette is the four-color theme of a home. Every field is required.
type Palette struct {
	Primary   string `bson:"primary" json:"primary"`
	Secondary string `bson:"secondary" json:"secondary"`
	Accent    string `bson:"accent" json:"accent"`
	Neutral   string `bson:"neutral" json:"neutral"`
}

// NamedPalette is a preset offered to users when theming a home.
type NamedPalette struct {
	Name    string  `json:"name"`
	Palette Palette `json:"palette"`
}

// DefaultPalette is applied to homes created without an explicit palette.
var DefaultPalette = Palette{
	Primary:   "#0f766e",
	Secondary: "#e2e8f0",
	Accent:    "#f97316",
	Neutral:   "#0f172a",
}

// PresetPalettes returns the built-in palette presets in display order.
func PresetPalettes() []NamedPalette {
	return []NamedPalette{
		{Name: "Maré Serena", Palette: DefaultPalette},
		{Name: "Sol Quente", Palette: Palette{Primary: "#c2410c", Secondary: "#fef3c7", Accent: "#facc15", Neutral: "#292524"}},
		{Name: "Jardim Vivo", Palette: Palette{Primary: "#15803d", Secondary: "#dcfce7", Accent: "#a3e635", Neutral: "#14532d"}},
		{Name: "Lavanda Suave", Palette: Palette{Primary: "#7c3aed", Secondary: "#ede9fe", Accent: "#f472b6", Neutral: "#1e1b4b"}},
		{Name: "Marinho Chic", Palette: Palette{Primary: "#1e3a8a", Secondary: "#e0e7ff", Accent: "#fbbf24", Neutral: "#0b1120"}},
	}
}
