// Package scenario reads and writes scenarios and plans.
//
// Scenarios are JSON or YAML documents. Joint velocity and acceleration
// limits accept a single number (applied to every joint) or a list of exactly
// six numbers; anything else is rejected here so the planner only sees
// fixed-size joint vectors.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTXT  Format = "txt"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt":
		return FormatTXT, nil
	}
	return "", fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
}

// point is a 3D coordinate written as [x, y, z].
type point []float64

func pointOf(p core.Pos) point { return point{p.X, p.Y, p.Z} }

func (p point) pos(what string) (core.Pos, error) {
	if len(p) != 3 {
		return core.Pos{}, fmt.Errorf("%s: want 3 coordinates, got %d", what, len(p))
	}
	return core.Pos{X: p[0], Y: p[1], Z: p[2]}, nil
}

// jointVector decodes a scalar or a six-element list.
type jointVector struct {
	values core.JointVector
}

func (j *jointVector) fromList(list []float64) error {
	if len(list) != core.NumJoints {
		return fmt.Errorf("joint vector: want 1 or %d values, got %d", core.NumJoints, len(list))
	}
	copy(j.values[:], list)
	return nil
}

func (j *jointVector) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []float64
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("joint vector: %w", err)
		}
		return j.fromList(list)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("joint vector: want a number or a list of %d numbers", core.NumJoints)
	}
	j.values = core.Uniform(v)
	return nil
}

func (j *jointVector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("joint vector: %w", err)
		}
		j.values = core.Uniform(v)
		return nil
	case yaml.SequenceNode:
		var list []float64
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("joint vector: %w", err)
		}
		return j.fromList(list)
	}
	return fmt.Errorf("joint vector: want a number or a list of %d numbers (line %d)", core.NumJoints, node.Line)
}

// encoded returns a scalar when every joint shares one value.
func (j jointVector) encoded() any {
	if j.values == core.Uniform(j.values[0]) {
		return j.values[0]
	}
	return j.values[:]
}

func (j jointVector) MarshalJSON() ([]byte, error) { return json.Marshal(j.encoded()) }

func (j jointVector) MarshalYAML() (any, error) { return j.encoded(), nil }

type robotFile struct {
	ID            int          `json:"id" yaml:"id"`
	Base          point        `json:"base" yaml:"base,flow"`
	JointLimits   [][2]float64 `json:"joint_limits,omitempty" yaml:"joint_limits,omitempty,flow"`
	MaxVelocity   jointVector  `json:"max_velocity" yaml:"max_velocity"`
	MaxAccel      jointVector  `json:"max_accel" yaml:"max_accel"`
	ToolClearance float64      `json:"tool_clearance" yaml:"tool_clearance"`
}

type operationFile struct {
	ID    int     `json:"id" yaml:"id"`
	Pick  point   `json:"pick" yaml:"pick,flow"`
	Place point   `json:"place" yaml:"place,flow"`
	Hold  float64 `json:"t_hold" yaml:"t_hold"`
}

type obstacleFile struct {
	ID     int     `json:"id" yaml:"id"`
	Type   string  `json:"type" yaml:"type"`
	Center point   `json:"center" yaml:"center,flow"`
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Size   point   `json:"size,omitempty" yaml:"size,omitempty,flow"`
}

type scenarioFile struct {
	Name       string          `json:"name,omitempty" yaml:"name,omitempty"`
	SafeDist   float64         `json:"safe_dist" yaml:"safe_dist"`
	Robots     []robotFile     `json:"robots" yaml:"robots"`
	Operations []operationFile `json:"operations" yaml:"operations"`
	Obstacles  []obstacleFile  `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
}

func (f *scenarioFile) toCore() (*core.Scenario, error) {
	sc := core.NewScenario()
	sc.Name = f.Name
	sc.SafeDist = f.SafeDist

	var err error
	for i, rf := range f.Robots {
		r := &core.Robot{
			ID:          core.RobotID(rf.ID),
			MaxVelocity: rf.MaxVelocity.values,
			MaxAccel:    rf.MaxAccel.values,
			Clearance:   rf.ToolClearance,
		}
		var perr error
		if r.Base, perr = rf.Base.pos(fmt.Sprintf("robot %d base", rf.ID)); perr != nil {
			err = multierr.Append(err, perr)
		}
		switch len(rf.JointLimits) {
		case 0:
		case core.NumJoints:
			for j, lim := range rf.JointLimits {
				r.JointLimits[j] = core.JointLimit{Min: lim[0], Max: lim[1]}
			}
		default:
			err = multierr.Append(err, fmt.Errorf("robot %d (entry %d): want %d joint limits, got %d",
				rf.ID, i, core.NumJoints, len(rf.JointLimits)))
		}
		sc.Robots = append(sc.Robots, r)
	}

	for _, of := range f.Operations {
		op := &core.Operation{ID: core.OperationID(of.ID), Hold: of.Hold}
		var perr error
		if op.Pick, perr = of.Pick.pos(fmt.Sprintf("operation %d pick", of.ID)); perr != nil {
			err = multierr.Append(err, perr)
		}
		if op.Place, perr = of.Place.pos(fmt.Sprintf("operation %d place", of.ID)); perr != nil {
			err = multierr.Append(err, perr)
		}
		sc.Operations = append(sc.Operations, op)
	}

	for _, obf := range f.Obstacles {
		o := &core.Obstacle{ID: obf.ID, Kind: core.ObstacleKind(strings.ToLower(obf.Type)), Radius: obf.Radius}
		var perr error
		if o.Center, perr = obf.Center.pos(fmt.Sprintf("obstacle %d center", obf.ID)); perr != nil {
			err = multierr.Append(err, perr)
		}
		if o.Kind == core.ObstacleBox {
			if o.Size, perr = obf.Size.pos(fmt.Sprintf("obstacle %d size", obf.ID)); perr != nil {
				err = multierr.Append(err, perr)
			}
		}
		sc.Obstacles = append(sc.Obstacles, o)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidScenario, err)
	}
	return sc, nil
}

func fromCore(sc *core.Scenario) *scenarioFile {
	f := &scenarioFile{Name: sc.Name, SafeDist: sc.SafeDist}
	for _, r := range sc.Robots {
		rf := robotFile{
			ID:            int(r.ID),
			Base:          pointOf(r.Base),
			MaxVelocity:   jointVector{values: r.MaxVelocity},
			MaxAccel:      jointVector{values: r.MaxAccel},
			ToolClearance: r.Clearance,
		}
		if r.JointLimits != [core.NumJoints]core.JointLimit{} {
			for _, lim := range r.JointLimits {
				rf.JointLimits = append(rf.JointLimits, [2]float64{lim.Min, lim.Max})
			}
		}
		f.Robots = append(f.Robots, rf)
	}
	for _, op := range sc.Operations {
		f.Operations = append(f.Operations, operationFile{
			ID: int(op.ID), Pick: pointOf(op.Pick), Place: pointOf(op.Place), Hold: op.Hold,
		})
	}
	for _, o := range sc.Obstacles {
		of := obstacleFile{ID: o.ID, Type: string(o.Kind), Center: pointOf(o.Center), Radius: o.Radius}
		if o.Kind == core.ObstacleBox {
			of.Size = pointOf(o.Size)
		}
		f.Obstacles = append(f.Obstacles, of)
	}
	return f
}

// Decode reads and validates a scenario.
func Decode(r io.Reader, format Format) (*core.Scenario, error) {
	var f scenarioFile
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: decode json: %w", core.ErrInvalidScenario, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", core.ErrInvalidScenario, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scenario format %q", core.ErrInvalidScenario, format)
	}

	sc, err := f.toCore()
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Encode writes a scenario.
func Encode(w io.Writer, sc *core.Scenario, format Format) error {
	f := fromCore(sc)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported scenario format %q", format)
}

// Load reads a scenario file, picking the format from its extension.
func Load(path string) (*core.Scenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidScenario, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sc, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Save writes a scenario file, picking the format from its extension.
func Save(path string, sc *core.Scenario) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, sc, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
