package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime/pprof"
	"time"

	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"
	"gopkg.in/gcfg.v1"

	"github.com/mfellner/nbforce/geom"
	"github.com/mfellner/nbforce/nblist"
	"github.com/mfellner/nbforce/nonbonded"
	"github.com/mfellner/nbforce/parallel"
)

const exampleConfigFile = `[Nonbonded]

#######################
# Required Parameters #
#######################

# Number of atoms. They are placed on a cubic lattice with alternating
# positive and negative charges.
Atoms = 1000

# Lattice spacing in nm.
Spacing = 0.30

# Cutoff distance in nm. The periodic box is derived from the lattice and
# must be at least twice this value on every side.
Cutoff = 1.0

#######################
# Optional Parameters #
#######################

# Magnitude of the alternating charges, in units of e.
# Charge = 0.5

# Per-atom Lennard-Jones parameters. Sigma values combine by summation.
# Sigma = 0.15
# Epsilon = 0.5

# Distance at which the Lennard-Jones switching function begins. Must lie
# below the cutoff. Zero disables switching.
# Switching = 0.9

# Solvent dielectric used for the reaction-field electrostatics when Ewald
# is disabled.
# Dielectric = 78.3

# Ewald separation parameter in 1/nm. Zero leaves Ewald disabled and the
# engine on reaction-field electrostatics.
# EwaldAlpha = 3.0

# Largest wavevector index used along each axis by the reciprocal sum.
# Kmax = 10

# Number of force evaluations to run.
# Steps = 10

# Number of worker threads. Zero means one per logical core.
# Threads = 0

# Write a CPU profile to this file.
# ProfileFile = prof.out`

// NonbondedConfig mirrors the [Nonbonded] section of the configuration file.
type NonbondedConfig struct {
	Atoms       int
	Spacing     float32
	Cutoff      float32
	Charge      float32
	Sigma       float32
	Epsilon     float32
	Switching   float32
	Dielectric  float32
	EwaldAlpha  float32
	Kmax        int
	Steps       int
	Threads     int
	ProfileFile string
}

type configFile struct {
	Nonbonded NonbondedConfig
}

func defaultConfig() *configFile {
	cfg := &configFile{}
	cfg.Nonbonded.Charge = 0.5
	cfg.Nonbonded.Sigma = 0.15
	cfg.Nonbonded.Epsilon = 0.5
	cfg.Nonbonded.Dielectric = 78.3
	cfg.Nonbonded.Kmax = 10
	cfg.Nonbonded.Steps = 10
	return cfg
}

func main() {
	var (
		configPath    string
		exampleConfig bool
	)
	flag.StringVar(
		&configPath, "Config", "",
		"Configuration file with a [Nonbonded] section.",
	)
	flag.BoolVar(
		&exampleConfig, "ExampleConfig", false,
		"Prints an example configuration file to stdout.",
	)
	flag.Parse()

	if exampleConfig {
		fmt.Println(exampleConfigFile)
		return
	}
	if configPath == "" {
		log.Fatal("No configuration file given. Run with -ExampleConfig " +
			"to see the expected format.")
	}

	cfg := defaultConfig()
	if err := gcfg.ReadFileInto(cfg, configPath); err != nil {
		log.Fatal(err.Error())
	}
	nb := &cfg.Nonbonded
	if nb.Atoms <= 0 || nb.Spacing <= 0 || nb.Cutoff <= 0 {
		log.Fatal("Atoms, Spacing and Cutoff must all be positive.")
	}

	if nb.ProfileFile != "" {
		f, err := os.Create(nb.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	run(nb)
}

func run(nb *NonbondedConfig) {
	posq, params, boxSize := lattice(
		nb.Atoms, nb.Spacing, nb.Charge, nb.Sigma, nb.Epsilon,
	)
	for m := 0; m < 3; m++ {
		if boxSize[m] < 2*nb.Cutoff {
			log.Fatalf(
				"Lattice box dimension %g is smaller than twice the "+
					"cutoff %g. Increase Atoms or Spacing.",
				boxSize[m], nb.Cutoff,
			)
		}
	}
	exclusions := make([][]int32, nb.Atoms)

	box := geom.NewBox(boxSize[0], boxSize[1], boxSize[2])
	neighbors := nblist.Build(posq, nb.Atoms, exclusions, nb.Cutoff, true, box)

	ev := &nonbonded.Evaluator{}
	ev.SetUseCutoff(nb.Cutoff, neighbors, nb.Dielectric)
	if nb.Switching > 0 {
		ev.SetUseSwitchingFunction(nb.Switching)
	}
	ev.SetPeriodic(boxSize)
	if nb.EwaldAlpha > 0 {
		ev.SetUseEwald(nb.EwaldAlpha, nb.Kmax, nb.Kmax, nb.Kmax)
	}

	pool := parallel.NewPool(nb.Threads)
	defer pool.Close()
	log.Printf(
		"Evaluating %d atoms, %d neighbor blocks, %d workers.",
		nb.Atoms, neighbors.NumBlocks(), pool.Workers(),
	)

	forces := make([]float32, 4*nb.Atoms)
	var energy float32
	start := time.Now()
	for step := 0; step < nb.Steps; step++ {
		for i := range forces {
			forces[i] = 0
		}
		energy = 0
		err := ev.Evaluate(
			nb.Atoms, posq, params, exclusions, forces, &energy, pool,
		)
		if err != nil {
			log.Fatal(err.Error())
		}
	}
	elapsed := time.Since(start)

	magnitudes := make([]float32, nb.Atoms)
	for i := range magnitudes {
		f := forces[4*i:]
		magnitudes[i] = math32.Sqrt(f[0]*f[0] + f[1]*f[1] + f[2]*f[2])
	}
	log.Printf("Energy: %.6g kJ/mol", energy)
	log.Printf(
		"Force magnitude: max %.4g, mean %.4g kJ/mol/nm",
		vek32.Max(magnitudes), vek32.Mean(magnitudes),
	)
	log.Printf(
		"%d evaluations in %v (%.2f ms/step)",
		nb.Steps, elapsed,
		float64(elapsed.Milliseconds())/float64(nb.Steps),
	)
}

// lattice places atoms on a cubic lattice with alternating charges and
// uniform Lennard-Jones parameters.
func lattice(
	atoms int, spacing, charge, sigma, epsilon float32,
) (posq []float32, params []nonbonded.LJParams, boxSize [3]float32) {
	side := int(math.Ceil(math.Cbrt(float64(atoms))))
	posq = make([]float32, 4*atoms)
	params = make([]nonbonded.LJParams, atoms)
	for i := 0; i < atoms; i++ {
		x := i % side
		y := (i / side) % side
		z := i / (side * side)
		posq[4*i] = (float32(x) + 0.5) * spacing
		posq[4*i+1] = (float32(y) + 0.5) * spacing
		posq[4*i+2] = (float32(z) + 0.5) * spacing
		if (x+y+z)%2 == 0 {
			posq[4*i+3] = charge
		} else {
			posq[4*i+3] = -charge
		}
		params[i] = nonbonded.LJParams{Sigma: sigma, Epsilon: epsilon}
	}
	width := float32(side) * spacing
	return posq, params, [3]float32{width, width, width}
}
