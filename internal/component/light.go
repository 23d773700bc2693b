package component

// LightColor is an RGB color in the 0-1 range.
type LightColor struct {
	R float32 `yaml:"r" json:"r"`
	G float32 `yaml:"g" json:"g"`
	B float32 `yaml:"b" json:"b"`
}

// White is full-intensity white light.
var White = LightColor{R: 1, G: 1, B: 1}

type Intensity struct {
	Value float32 `yaml:"value" json:"value"`
}
