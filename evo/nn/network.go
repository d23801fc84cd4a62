package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when weight matrices do not form a valid
	// layer chain, or when two networks with different chains are combined.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInputSize is returned by Forward when the sensor vector has the wrong length.
	ErrInputSize = errors.New("input size mismatch")
	// ErrInvalidDimensions is returned by New for unusable layer sizes.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// InitScheme selects how New draws the initial weights.
type InitScheme int

const (
	// InitGaussian draws from N(0, sqrt(2/fan_in)), fan_in being the neuron
	// count of the layer feeding the matrix.
	InitGaussian InitScheme = iota
	// InitUniform draws uniformly from [-1, 1].
	InitUniform
)

// ParseInitScheme retrieves an initialisation scheme by name ("gaussian" or "uniform").
func ParseInitScheme(name string) (InitScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian":
		return InitGaussian, nil
	case "uniform":
		return InitUniform, nil
	}
	return 0, fmt.Errorf("unknown weight init scheme: %s", name)
}

func (s InitScheme) String() string {
	switch s {
	case InitGaussian:
		return "gaussian"
	case InitUniform:
		return "uniform"
	default:
		return fmt.Sprintf("InitScheme(%d)", int(s))
	}
}

// Options are the per-deployment settings shared by every network of a population.
// The zero value is a ReLU network with gaussian initialisation.
type Options struct {
	Activation Activation
	Init       InitScheme
}

// Shape is the (rows, cols) size of one weight matrix.
type Shape struct {
	Rows int
	Cols int
}

// Network is a dense feed-forward network stored as one weight matrix per
// layer transform. Matrix i has shape (out_i, in_i+1): the last column
// multiplies the bias input. Hidden matrices carry one extra output row that
// feeds the bias column of the next matrix; the final matrix has exactly one
// row per action.
//
// A Network is never modified after construction, so it may be shared by
// concurrent readers.
type Network struct {
	layers     []*mat.Dense
	activation Activation
	init       InitScheme
}

// New builds a randomly initialised network. dims lists the neuron count of
// every layer, inputs first and actions last; for dims (5, 2, 3) the matrices
// are 3x6 and 3x3.
func New(dims []int, opts Options, rng *rand.Rand) (*Network, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 layer sizes, got %d", ErrInvalidDimensions, len(dims))
	}
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidDimensions, i, d)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	last := len(dims) - 1
	layers := make([]*mat.Dense, last)
	for i := 0; i < last; i++ {
		rows := dims[i+1] + 1
		if i+1 == last {
			rows = dims[i+1]
		}
		cols := dims[i] + 1
		stddev := math.Sqrt(2 / float64(dims[i]))

		data := make([]float64, rows*cols)
		for j := range data {
			switch opts.Init {
			case InitUniform:
				data[j] = rng.Float64()*2 - 1
			default:
				data[j] = rng.NormFloat64() * stddev
			}
		}
		layers[i] = mat.NewDense(rows, cols, data)
	}

	return &Network{layers: layers, activation: opts.Activation, init: opts.Init}, nil
}

// FromWeights adopts the given matrices as a network without copying them.
// The caller must not modify the matrices afterwards.
func FromWeights(layers []*mat.Dense, opts Options) (*Network, error) {
	if err := checkChain(layers); err != nil {
		return nil, err
	}
	return &Network{layers: layers, activation: opts.Activation, init: opts.Init}, nil
}

// checkChain verifies that every matrix's row count equals the column count of the next one.
func checkChain(layers []*mat.Dense) error {
	if len(layers) == 0 {
		return fmt.Errorf("%w: network has no layers", ErrShapeMismatch)
	}
	for i, l := range layers {
		if l == nil || l.IsEmpty() {
			return fmt.Errorf("%w: layer %d is empty", ErrShapeMismatch, i)
		}
	}
	if _, c := layers[0].Dims(); c < 2 {
		return fmt.Errorf("%w: layer 0 has %d columns, need at least one input plus bias", ErrShapeMismatch, c)
	}
	for i := 0; i+1 < len(layers); i++ {
		r, _ := layers[i].Dims()
		_, c := layers[i+1].Dims()
		if r != c {
			return fmt.Errorf("%w: layer %d produces %d values but layer %d takes %d", ErrShapeMismatch, i, r, i+1, c)
		}
	}
	return nil
}

// Forward computes the action activations for one sensor vector.
func (n *Network) Forward(input []float64) ([]float64, error) {
	return n.forward(input, nil)
}

// Trace is like Forward but also returns the value of every layer, for
// rendering or debugging. The output is identical to Forward's.
func (n *Network) Trace(input []float64) ([]float64, Trace, error) {
	var tr Trace
	out, err := n.forward(input, &tr)
	if err != nil {
		return nil, Trace{}, err
	}
	return out, tr, nil
}

func (n *Network) forward(input []float64, tr *Trace) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("%w: got %d values, network takes %d", ErrInputSize, len(input), n.InputSize())
	}

	z := make([]float64, len(input)+1)
	copy(z, input)
	z[len(input)] = 1
	tr.record(z)

	last := len(n.layers) - 1
	for i, w := range n.layers {
		rows, _ := w.Dims()
		out := mat.NewVecDense(rows, nil)
		out.MulVec(w, mat.NewVecDense(len(z), z))
		z = out.RawVector().Data

		if i == last && n.activation.SoftmaxOutput() {
			softmax(z)
		} else {
			n.activation.apply(z)
		}
		tr.record(z)
	}
	return z, nil
}

// InputSize is the length of the sensor vector Forward expects.
func (n *Network) InputSize() int {
	_, c := n.layers[0].Dims()
	return c - 1
}

// OutputSize is the number of action activations Forward returns.
func (n *Network) OutputSize() int {
	r, _ := n.layers[len(n.layers)-1].Dims()
	return r
}

// Activation returns the hidden activation family.
func (n *Network) Activation() Activation {
	return n.activation
}

// Options returns the settings the network was built with. Init only
// matters to New; adopted networks report the scheme they were given.
func (n *Network) Options() Options {
	return Options{Activation: n.activation, Init: n.init}
}

// NumLayers returns the number of weight matrices.
func (n *Network) NumLayers() int {
	return len(n.layers)
}

// NumWeights returns the total number of scalar weights, bias columns included.
func (n *Network) NumWeights() int {
	total := 0
	for _, l := range n.layers {
		r, c := l.Dims()
		total += r * c
	}
	return total
}

// Shapes returns the dimensions of every weight matrix in order.
func (n *Network) Shapes() []Shape {
	shapes := make([]Shape, len(n.layers))
	for i, l := range n.layers {
		r, c := l.Dims()
		shapes[i] = Shape{Rows: r, Cols: c}
	}
	return shapes
}

// Dimensions reconstructs the neuron counts New was called with.
func (n *Network) Dimensions() []int {
	dims := make([]int, 0, len(n.layers)+1)
	dims = append(dims, n.InputSize())
	for i, l := range n.layers {
		r, _ := l.Dims()
		if i < len(n.layers)-1 {
			r--
		}
		dims = append(dims, r)
	}
	return dims
}

// SameShape reports whether both networks have identical weight matrix shapes.
func (n *Network) SameShape(other *Network) bool {
	if len(n.layers) != len(other.layers) {
		return false
	}
	for i := range n.layers {
		r1, c1 := n.layers[i].Dims()
		r2, c2 := other.layers[i].Dims()
		if r1 != r2 || c1 != c2 {
			return false
		}
	}
	return true
}

// Layers returns deep copies of the weight matrices.
func (n *Network) Layers() []*mat.Dense {
	out := make([]*mat.Dense, len(n.layers))
	for i, l := range n.layers {
		out[i] = mat.DenseCopyOf(l)
	}
	return out
}

// Weight returns a single weight.
func (n *Network) Weight(layer, row, col int) float64 {
	return n.layers[layer].At(row, col)
}

// Clone returns a deep copy with independent storage.
func (n *Network) Clone() *Network {
	return &Network{layers: n.Layers(), activation: n.activation, init: n.init}
}

// Equal reports whether both networks have the same shapes and activation
// and all weights agree within tol.
func (n *Network) Equal(other *Network, tol float64) bool {
	if n.activation != other.activation || !n.SameShape(other) {
		return false
	}
	for i := range n.layers {
		if !mat.EqualApprox(n.layers[i], other.layers[i], tol) {
			return false
		}
	}
	return true
}

// Trace holds the per-layer values of one forward pass. Layers[0] is the
// input with its bias term appended; Layers[i] for i > 0 is the output of
// matrix i-1 after its activation (or softmax for the output layer).
type Trace struct {
	Layers [][]float64
}

func (t *Trace) record(v []float64) {
	if t == nil {
		return
	}
	t.Layers = append(t.Layers, append([]float64(nil), v...))
}
