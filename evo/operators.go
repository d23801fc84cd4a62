package evo

import (
	"fmt"
	"math/rand"

	"github.com/baldhumanity/evonet/evo/nn"
	"gonum.org/v1/gonum/mat"
)

// MutationPower scales the gaussian step added to a mutated weight.
const MutationPower = 1.0 / 5.0

// Mutate returns a copy of net in which every weight, independently with
// probability rate, is moved by a gaussian step of MutationPower. For any
// positive rate every weight of the result is then clamped to [-1, 1], so
// out-of-range initial weights never survive a mutation. A rate of zero
// returns an exact copy. The source network is never modified.
func Mutate(rng *rand.Rand, net *nn.Network, rate float64) *nn.Network {
	layers := net.Layers()
	if rate > 0 {
		for _, l := range layers {
			raw := l.RawMatrix()
			for i := 0; i < raw.Rows; i++ {
				row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
				for j, w := range row {
					if rng.Float64() < rate {
						w += rng.NormFloat64() * MutationPower
					}
					row[j] = clamp(w, -1, 1)
				}
			}
		}
	}
	return adopt(layers, net.Options())
}

// Crossover produces two children by single-point crossover. A cutoff is
// drawn uniformly over the row-major concatenation of all weight matrices;
// the first child takes every weight before the cutoff from a and the rest
// from b, the second child is its complement. Weights are copied, never
// blended. Both parents must have identical shapes.
func Crossover(rng *rand.Rand, a, b *nn.Network) (*nn.Network, *nn.Network, error) {
	if !a.SameShape(b) {
		return nil, nil, fmt.Errorf("crossover: %w: %v vs %v", nn.ErrShapeMismatch, a.Shapes(), b.Shapes())
	}
	cutoff := rng.Intn(a.NumWeights() + 1)
	c1, c2 := crossoverAt(a, b, cutoff)
	return c1, c2, nil
}

// crossoverAt splits two equally shaped parents at the given flat weight position.
func crossoverAt(a, b *nn.Network, cutoff int) (*nn.Network, *nn.Network) {
	first := a.Layers()
	second := b.Layers()

	pos := 0
	for li := range first {
		rows, cols := first[li].Dims()
		if pos+rows*cols <= cutoff {
			pos += rows * cols
			continue
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if pos >= cutoff {
					x := first[li].At(i, j)
					first[li].Set(i, j, second[li].At(i, j))
					second[li].Set(i, j, x)
				}
				pos++
			}
		}
	}
	return adopt(first, a.Options()), adopt(second, a.Options())
}

// adopt wraps matrices copied from a valid network. The chain was already
// checked when the source was built, so failure means a bug here.
func adopt(layers []*mat.Dense, opts nn.Options) *nn.Network {
	net, err := nn.FromWeights(layers, opts)
	if err != nil {
		panic(fmt.Sprintf("adopting copied weights: %v", err))
	}
	return net
}
