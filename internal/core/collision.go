package core

// Collision records a clearance violation at one sampled instant.
// RobotB is ObstacleID when the peer is a static obstacle.
type Collision struct {
	RobotA      RobotID
	RobotB      RobotID
	Time        float64
	PosA        Pos
	PosB        Pos
	Distance    float64 // Actual centre-to-centre distance
	MinDistance float64 // Required distance
	Obstacle    int     // Obstacle id; meaningful only when RobotB is ObstacleID
}

// IsObstacle reports whether the peer is a static obstacle.
func (c Collision) IsObstacle() bool {
	return c.RobotB == ObstacleID
}

// Involves reports whether robot id is one of the parties.
func (c Collision) Involves(id RobotID) bool {
	return c.RobotA == id || c.RobotB == id
}
