package evo

import (
	"fmt"

	"github.com/baldhumanity/evonet/evo/nn"
)

// Controller turns sensor readings into action activations. Any strategy
// with this shape can drive an individual; the population hands out
// NetworkControllers.
type Controller interface {
	// Look converts raw sensor readings into network inputs.
	Look(sensors []float64) ([]float64, error)
	// Think maps inputs to one activation level per action.
	Think(inputs []float64) ([]float64, error)
}

// NetworkController is the Controller backed by a feed-forward network.
type NetworkController struct {
	Network *nn.Network
}

// Look copies the sensors after checking their count against the network input width.
func (c NetworkController) Look(sensors []float64) ([]float64, error) {
	if len(sensors) != c.Network.InputSize() {
		return nil, fmt.Errorf("controller expects %d sensors, got %d: %w", c.Network.InputSize(), len(sensors), nn.ErrInputSize)
	}
	return append([]float64(nil), sensors...), nil
}

// Think runs the network forward.
func (c NetworkController) Think(inputs []float64) ([]float64, error) {
	return c.Network.Forward(inputs)
}

// Step is Look followed by Think.
func Step(c Controller, sensors []float64) ([]float64, error) {
	inputs, err := c.Look(sensors)
	if err != nil {
		return nil, err
	}
	return c.Think(inputs)
}

// Actions returns the indexes of the outputs strictly above threshold, in order.
func Actions(outputs []float64, threshold float64) []int {
	active := []int{}
	for i, v := range outputs {
		if v > threshold {
			active = append(active, i)
		}
	}
	return active
}
