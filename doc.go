// Package pathtrack drives a differential drive robot along a recorded path
// using pure pursuit.
//
// The robot is reached over the Lokarria HTTP API of the MRDS simulator.
// Each control cycle reads the robot pose, drops the waypoints closer than
// the look-ahead distance, steers towards the first remaining one and sets
// the linear speed from the selected speed profile.
//
// # Installation
//
//	go install github.com/gwillem/pathtrack/cmd/pathtrack@latest
//
// # Usage
//
// Optionally write a configuration file:
//
//	pathtrack setup
//
// Then track a recorded path with a steering policy (1 pure pursuit,
// 2 proportional heading), a speed profile (1 to 4) and adaptive look-ahead:
//
//	pathtrack track Path-around-table.json 1 4 false --plot run.png --db runs.db
//
// Stored runs can be listed and plotted again:
//
//	pathtrack runs --db runs.db
//	pathtrack runs --db runs.db --plot 3 --out run3.png
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pathtrack: CLI with track, record, setup and runs commands
//   - pkg/robot: Pose types, Lokarria client and an in-process simulator
//   - pkg/path: Waypoint consumption and path files
//   - pkg/steering: Steering policies
//   - pkg/speed: Linear speed profiles
//   - pkg/tracker: Control loop
//   - pkg/trajectory: Driven track recording and plots
//   - pkg/storage: SQLite run log
//   - pkg/config: YAML configuration
//   - pkg/logging: zap loggers
package pathtrack
