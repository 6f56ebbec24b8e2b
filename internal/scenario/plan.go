package scenario

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

type carryFile struct {
	Robot int     `json:"robot"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type objectFile struct {
	ID             int         `json:"id"`
	Name           string      `json:"name,omitempty"`
	Operation      int         `json:"operation"`
	Initial        point       `json:"initial"`
	CarryIntervals []carryFile `json:"carry_intervals"`
}

type timingFile struct {
	Operation    int     `json:"operation"`
	Start        float64 `json:"start"`
	PickArrival  float64 `json:"pick_arrival"`
	HoldEnd      float64 `json:"hold_end"`
	PlaceArrival float64 `json:"place_arrival"`
}

type robotPlanFile struct {
	RobotID        int          `json:"robot_id"`
	Base           point        `json:"base"`
	ToolClearance  float64      `json:"tool_clearance"`
	OperationCount int          `json:"operation_count"`
	Trajectory     [][]float64  `json:"trajectory"` // Rows of [t, x, y, z]
	Timings        []timingFile `json:"timings,omitempty"`
}

type planFile struct {
	RunID    string          `json:"run_id,omitempty"`
	Method   string          `json:"method"`
	Makespan float64         `json:"makespan"`
	SafeDist float64         `json:"safe_dist"`
	Robots   []robotPlanFile `json:"robots"`
	Objects  []objectFile    `json:"objects,omitempty"`
}

// WritePlanJSON writes a plan as indented JSON.
func WritePlanJSON(w io.Writer, p *core.Plan) error {
	f := planFile{
		RunID:    p.RunID,
		Method:   p.Method,
		Makespan: p.Makespan,
		SafeDist: p.SafeDist,
		Robots:   make([]robotPlanFile, 0, len(p.Robots)),
	}
	for _, rp := range p.Robots {
		rf := robotPlanFile{
			RobotID:        int(rp.RobotID),
			Base:           pointOf(rp.Base),
			ToolClearance:  rp.Clearance,
			OperationCount: rp.OperationCount,
			Trajectory:     make([][]float64, len(rp.Trajectory)),
		}
		for i, wp := range rp.Trajectory {
			rf.Trajectory[i] = []float64{wp.T, wp.X, wp.Y, wp.Z}
		}
		for _, tm := range rp.Timings {
			rf.Timings = append(rf.Timings, timingFile{
				Operation:    int(tm.Operation),
				Start:        tm.Start,
				PickArrival:  tm.PickArrival,
				HoldEnd:      tm.HoldEnd,
				PlaceArrival: tm.PlaceArrival,
			})
		}
		f.Robots = append(f.Robots, rf)
	}
	for _, obj := range p.Objects {
		of := objectFile{ID: obj.ID, Name: obj.Name, Operation: int(obj.Operation), Initial: pointOf(obj.Initial)}
		for _, iv := range obj.CarryIntervals {
			of.CarryIntervals = append(of.CarryIntervals, carryFile{Robot: int(iv.Robot), Start: iv.Start, End: iv.End})
		}
		f.Objects = append(f.Objects, of)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// ReadPlanJSON reads and validates a JSON plan.
func ReadPlanJSON(r io.Reader) (*core.Plan, error) {
	var f planFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", core.ErrInvalidPlan, err)
	}

	p := core.NewPlan(f.Method, f.SafeDist)
	p.RunID = f.RunID
	p.Makespan = f.Makespan
	for _, rf := range f.Robots {
		base, err := rf.Base.pos(fmt.Sprintf("robot %d base", rf.RobotID))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidPlan, err)
		}
		rp := core.RobotPlan{
			RobotID:        core.RobotID(rf.RobotID),
			Base:           base,
			Clearance:      rf.ToolClearance,
			OperationCount: rf.OperationCount,
			Trajectory:     make(core.Trajectory, len(rf.Trajectory)),
		}
		for i, row := range rf.Trajectory {
			if len(row) != 4 {
				return nil, fmt.Errorf("%w: robot %d waypoint %d: want [t, x, y, z], got %d values",
					core.ErrInvalidPlan, rf.RobotID, i, len(row))
			}
			rp.Trajectory[i] = core.Waypoint{T: row[0], Pos: core.Pos{X: row[1], Y: row[2], Z: row[3]}}
		}
		for _, tf := range rf.Timings {
			rp.Timings = append(rp.Timings, core.OperationTiming{
				Operation:    core.OperationID(tf.Operation),
				Robot:        rp.RobotID,
				Start:        tf.Start,
				PickArrival:  tf.PickArrival,
				HoldEnd:      tf.HoldEnd,
				PlaceArrival: tf.PlaceArrival,
			})
		}
		p.Robots = append(p.Robots, rp)
	}
	for _, of := range f.Objects {
		initial, err := of.Initial.pos(fmt.Sprintf("object %d initial", of.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidPlan, err)
		}
		obj := core.Object{ID: of.ID, Name: of.Name, Operation: core.OperationID(of.Operation), Initial: initial}
		for _, cf := range of.CarryIntervals {
			obj.CarryIntervals = append(obj.CarryIntervals, core.CarryInterval{Robot: core.RobotID(cf.Robot), Start: cf.Start, End: cf.End})
		}
		p.Objects = append(p.Objects, obj)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePlanTXT writes the fixed-column text format: the makespan on the first
// line, then per robot a "robot_id point_count" header followed by one
// "t x y z" row per waypoint.
func WritePlanTXT(w io.Writer, p *core.Plan) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%.6f\n", p.Makespan)
	for _, rp := range p.Robots {
		fmt.Fprintf(bw, "%d %d\n", rp.RobotID, len(rp.Trajectory))
		for _, wp := range rp.Trajectory {
			fmt.Fprintf(bw, "%12.6f %12.6f %12.6f %12.6f\n", wp.T, wp.X, wp.Y, wp.Z)
		}
	}
	return bw.Flush()
}

// ReadPlanTXT reads the fixed-column text format. The format carries no
// clearance or safe distance; both are zero in the result.
func ReadPlanTXT(r io.Reader) (*core.Plan, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			if fields := strings.Fields(sc.Text()); len(fields) > 0 {
				return fields, true
			}
		}
		return nil, false
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: line %d: %s", core.ErrInvalidPlan, line, fmt.Sprintf(format, args...))
	}

	fields, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: empty plan", core.ErrInvalidPlan)
	}
	makespan, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || len(fields) != 1 {
		return nil, bad("want makespan, got %q", strings.Join(fields, " "))
	}

	p := core.NewPlan("", 0)
	p.Makespan = makespan
	for {
		fields, ok := next()
		if !ok {
			break
		}
		if len(fields) != 2 {
			return nil, bad("want \"robot_id point_count\", got %q", strings.Join(fields, " "))
		}
		id, err1 := strconv.Atoi(fields[0])
		count, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || count < 0 {
			return nil, bad("invalid robot header %q", strings.Join(fields, " "))
		}

		rp := core.RobotPlan{RobotID: core.RobotID(id), Trajectory: make(core.Trajectory, 0, count)}
		for i := 0; i < count; i++ {
			row, ok := next()
			if !ok {
				return nil, bad("robot %d: want %d waypoints, got %d", id, count, i)
			}
			if len(row) != 4 {
				return nil, bad("want \"t x y z\", got %q", strings.Join(row, " "))
			}
			var v [4]float64
			for j := range v {
				if v[j], err = strconv.ParseFloat(row[j], 64); err != nil {
					return nil, bad("%v", err)
				}
			}
			rp.Trajectory = append(rp.Trajectory, core.Waypoint{T: v[0], Pos: core.Pos{X: v[1], Y: v[2], Z: v[3]}})
		}
		if len(rp.Trajectory) > 0 {
			rp.Base = rp.Trajectory[0].Pos
		}
		p.Robots = append(p.Robots, rp)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// SavePlan writes a plan file, picking JSON or TXT from the extension.
func SavePlan(path string, p *core.Plan) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		err = WritePlanJSON(file, p)
	case FormatTXT:
		err = WritePlanTXT(file, p)
	default:
		err = fmt.Errorf("unsupported plan format %q", format)
	}
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadPlan reads a JSON or TXT plan file.
func LoadPlan(path string) (*core.Plan, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		return ReadPlanJSON(file)
	case FormatTXT:
		return ReadPlanTXT(file)
	}
	return nil, fmt.Errorf("unsupported plan format %q", format)
}
