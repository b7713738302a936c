package model

// Config fixes every width in the network graph. Two models built from the
// same Config and seed have identical weights.
type Config struct {
	LatentDim   int     // D, width of the fused latent
	VisualDim   int     // V, width of the upstream visual embedding
	HiddenScale int     // projection hidden width = HiddenScale * output width
	DropoutRate float64 // reserved for training tooling; inference passes never apply it
	InitStd     float64 // stddev of the weight init distribution
}

func DefaultConfig() Config {
	return Config{
		LatentDim:   256,
		VisualDim:   768,
		HiddenScale: 2,
		DropoutRate: 0.1,
		InitStd:     0.05,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.LatentDim <= 0 {
		c.LatentDim = d.LatentDim
	}
	if c.VisualDim <= 0 {
		c.VisualDim = d.VisualDim
	}
	if c.HiddenScale <= 0 {
		c.HiddenScale = d.HiddenScale
	}
	if c.InitStd <= 0 {
		c.InitStd = d.InitStd
	}
}
