package nn

import (
	"fmt"
	"math"
	"strings"
)

// Activation selects the elementwise function applied to every hidden layer.
// A network uses one activation family for all of its hidden layers.
type Activation int

const (
	ReLU Activation = iota
	Sigmoid
	Tanh
)

// activationNames maps configuration names to activation families.
var activationNames = map[string]Activation{
	"relu":    ReLU,
	"sigmoid": Sigmoid,
	"tanh":    Tanh,
}

// ParseActivation retrieves an activation family by name.
func ParseActivation(name string) (Activation, error) {
	if a, ok := activationNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("unknown activation function: %s", name)
}

// String returns the configuration name of the activation.
func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// SoftmaxOutput reports whether the output layer is normalised with softmax
// instead of the hidden activation. Rectified outputs are unbounded, so a
// ReLU network always ends in softmax.
func (a Activation) SoftmaxOutput() bool {
	return a == ReLU
}

// apply runs the activation over v in place.
func (a Activation) apply(v []float64) {
	switch a {
	case ReLU:
		for i, x := range v {
			v[i] = relu(x)
		}
	case Sigmoid:
		for i, x := range v {
			v[i] = sigmoid(x)
		}
	case Tanh:
		for i, x := range v {
			v[i] = math.Tanh(x)
		}
	}
}

func relu(x float64) float64 {
	return math.Max(0, x)
}

// sigmoid is the plain logistic function, 1 / (1 + exp(-x)).
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// softmax normalises v in place. The maximum is subtracted first so large
// activations cannot overflow math.Exp.
func softmax(v []float64) {
	if len(v) == 0 {
		return
	}
	maxVal := v[0]
	for _, x := range v[1:] {
		if x > maxVal {
			maxVal = x
		}
	}
	sum := 0.0
	for i, x := range v {
		e := math.Exp(x - maxVal)
		v[i] = e
		sum += e
	}
	for i := range v {
		v[i] /= sum
	}
}
