package component

// Position is a world-space location. Pure data; systems that care about
// hierarchy read transform.Translation instead.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}
