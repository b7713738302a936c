package vecmath

import "math"

// Vector is a plain float64 slice. All operations allocate their result;
// inputs are never written to.
type Vector []float64

func Zeros(n int) Vector { return make(Vector, n) }

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func Concat(vecs ...Vector) Vector {
	n := 0
	for _, v := range vecs {
		n += len(v)
	}
	out := make(Vector, 0, n)
	for _, v := range vecs {
		out = append(out, v...)
	}
	return out
}

// Equal reports bit-for-bit equality (no epsilon).
func Equal(a, b Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func Tanh(v Vector) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = math.Tanh(x)
	}
	return out
}

func Sigmoid(v Vector) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = 1.0 / (1.0 + math.Exp(-x))
	}
	return out
}

func ReLU(v Vector) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

// RMSNorm normalizes v by its root-mean-square magnitude.
func RMSNorm(v Vector) Vector {
	ms := 0.0
	for _, x := range v {
		ms += x * x
	}
	ms = ms/float64(len(v)) + 1e-8
	inv := 1.0 / math.Sqrt(ms)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
