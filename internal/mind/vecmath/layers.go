package vecmath

// Linear is a dense layer: y = Wx + b. Weights are row-major, one row per
// output unit. Exported fields so gob checkpoints capture them directly.
type Linear struct {
	NOut, NIn int
	W         []float64 // NOut*NIn
	B         []float64 // NOut
}

// NewLinear initializes W from N(0, std^2) and B to zero.
func NewLinear(nout, nin int, std float64, rng *RNG) *Linear {
	l := &Linear{
		NOut: nout,
		NIn:  nin,
		W:    make([]float64, nout*nin),
		B:    make([]float64, nout),
	}
	for i := range l.W {
		l.W[i] = rng.Normal() * std
	}
	return l
}

func (l *Linear) Apply(x Vector) Vector {
	out := make(Vector, l.NOut)
	for o := 0; o < l.NOut; o++ {
		row := l.W[o*l.NIn : (o+1)*l.NIn]
		sum := l.B[o]
		for i, w := range row {
			sum += w * x[i]
		}
		out[o] = sum
	}
	return out
}

// GRUCell is a single gated-recurrent update step:
//
//	r = sigmoid(Wr x + Ur h)
//	z = sigmoid(Wz x + Uz h)
//	n = tanh(Wn x + Un (r*h))
//	h' = (1-z)*n + z*h
//
// It is applied once per call, never scanned over a sequence.
type GRUCell struct {
	Hidden, Input int
	Wr, Wz, Wn    *Linear // input -> hidden
	Ur, Uz, Un    *Linear // hidden -> hidden
}

func NewGRUCell(hidden, input int, std float64, rng *RNG) *GRUCell {
	return &GRUCell{
		Hidden: hidden,
		Input:  input,
		Wr:     NewLinear(hidden, input, std, rng),
		Wz:     NewLinear(hidden, input, std, rng),
		Wn:     NewLinear(hidden, input, std, rng),
		Ur:     NewLinear(hidden, hidden, std, rng),
		Uz:     NewLinear(hidden, hidden, std, rng),
		Un:     NewLinear(hidden, hidden, std, rng),
	}
}

func (c *GRUCell) Step(h, x Vector) Vector {
	r := Sigmoid(add(c.Wr.Apply(x), c.Ur.Apply(h)))
	z := Sigmoid(add(c.Wz.Apply(x), c.Uz.Apply(h)))
	rh := mul(r, h)
	n := Tanh(add(c.Wn.Apply(x), c.Un.Apply(rh)))
	out := make(Vector, c.Hidden)
	for i := range out {
		out[i] = (1-z[i])*n[i] + z[i]*h[i]
	}
	return out
}

func add(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func mul(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}
