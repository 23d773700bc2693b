package component

// Health stores hit points for an entity.
type Health struct {
	HP int32 `yaml:"hp" json:"hp"`
}
