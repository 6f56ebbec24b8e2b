package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// GenerateParams defines parameters for scenario generation.
type GenerateParams struct {
	Seed        int64   `json:"seed"`
	Robots      int     `json:"robots"`
	Operations  int     `json:"operations"`
	Obstacles   int     `json:"obstacles"`
	RingRadius  float64 `json:"ring_radius"` // Robot bases sit on a circle of this radius
	Extent      float64 `json:"extent"`      // Pick/place points lie in [-Extent, Extent]² x [0, 1]
	SafeDist    float64 `json:"safe_dist"`
	MaxVelocity float64 `json:"max_velocity"`
	MaxAccel    float64 `json:"max_accel"`
	Clearance   float64 `json:"clearance"`
	HoldMean    float64 `json:"hold_mean"`
	HoldStdDev  float64 `json:"hold_std_dev"`
}

// DefaultGenerateParams returns a small four-robot cell.
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		Seed:        42,
		Robots:      4,
		Operations:  20,
		RingRadius:  1.5,
		Extent:      2.0,
		SafeDist:    0.05,
		MaxVelocity: 1.0,
		MaxAccel:    2.0,
		Clearance:   0.05,
		HoldMean:    0.5,
		HoldStdDev:  0.1,
	}
}

// Generate creates a deterministic random scenario from params.
func Generate(params GenerateParams) (*core.Scenario, error) {
	if params.Robots < 1 || params.Operations < 0 || params.Obstacles < 0 {
		return nil, fmt.Errorf("%w: need at least one robot and non-negative counts (robots=%d operations=%d obstacles=%d)",
			core.ErrInvalidParameter, params.Robots, params.Operations, params.Obstacles)
	}
	rng := rand.New(rand.NewSource(params.Seed))

	sc := core.NewScenario()
	sc.Name = fmt.Sprintf("fleet_%dr_%dop_%d", params.Robots, params.Operations, params.Seed)
	sc.SafeDist = params.SafeDist

	reach := 2 * math.Pi
	for i := 0; i < params.Robots; i++ {
		angle := 2 * math.Pi * float64(i) / float64(params.Robots)
		r := &core.Robot{
			ID:          core.RobotID(i),
			Base:        core.Pos{X: params.RingRadius * math.Cos(angle), Y: params.RingRadius * math.Sin(angle)},
			MaxVelocity: core.Uniform(params.MaxVelocity),
			MaxAccel:    core.Uniform(params.MaxAccel),
			Clearance:   params.Clearance,
		}
		for j := range r.JointLimits {
			r.JointLimits[j] = core.JointLimit{Min: -reach, Max: reach}
		}
		sc.Robots = append(sc.Robots, r)
	}

	randomPoint := func(zMin, zMax float64) core.Pos {
		return core.Pos{
			X: (rng.Float64()*2 - 1) * params.Extent,
			Y: (rng.Float64()*2 - 1) * params.Extent,
			Z: zMin + rng.Float64()*(zMax-zMin),
		}
	}

	for i := 0; i < params.Operations; i++ {
		hold := math.Max(0, params.HoldMean+rng.NormFloat64()*params.HoldStdDev)
		sc.Operations = append(sc.Operations, &core.Operation{
			ID:    core.OperationID(i),
			Pick:  randomPoint(0, 1),
			Place: randomPoint(0, 1),
			Hold:  hold,
		})
	}

	// Obstacles float above the work envelope; every other one is a box.
	for i := 0; i < params.Obstacles; i++ {
		o := &core.Obstacle{ID: i, Center: randomPoint(1.5, 2.5)}
		if i%2 == 0 {
			o.Kind = core.ObstacleSphere
			o.Radius = 0.1 + rng.Float64()*0.2
		} else {
			o.Kind = core.ObstacleBox
			o.Size = core.Pos{X: 0.2 + rng.Float64()*0.3, Y: 0.2 + rng.Float64()*0.3, Z: 0.1 + rng.Float64()*0.2}
		}
		sc.Obstacles = append(sc.Obstacles, o)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
