// Package evonet evolves fixed-topology feed-forward networks with a
// generational genetic algorithm.
//
// A population holds N networks of identical shape. Each generation the
// caller simulates the individuals bound to those networks and records a
// fitness for each, then calls NaturalSelection, which keeps the best network,
// fills the rest with crossover children and mutated clones of
// fitness-proportionately drawn parents, and binds fresh individuals.
// Populations can be saved to and resumed from a directory tree, a SQLite
// database or memory.
//
// Basic usage:
//
//	// Load configuration
//	config, err := evo.LoadConfig("configs/xor.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create a new population
//	pop, err := evo.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	// Run 100 generations with your simulation
//	for i := 0; i < 100; i++ {
//		if err := pop.Evaluate(ctx, simulate, 0); err != nil {
//			log.Fatalf("Error evaluating generation: %v", err)
//		}
//		if err := pop.NaturalSelection(); err != nil {
//			log.Fatalf("Error in selection: %v", err)
//		}
//	}
//
//	// Persist the population
//	st, _ := store.New("dir", "populations")
//	if err := evo.Save(ctx, st, pop); err != nil {
//		log.Fatalf("Error saving population: %v", err)
//	}
package evonet
