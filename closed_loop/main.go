package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nnadams/SDC-MPC-P10/utils"
)

func main() {
	var (
		scenPath  = flag.String("scenario", "closed_loop/wave_track_60s.json", "Scenario JSON file")
		useCAN    = flag.Bool("can", false, "Drive a real plant over SocketCAN instead of the built-in simulator")
		iface     = flag.String("iface", "vcan0", "SocketCAN interface name")
		mapPath   = flag.String("map", "config/can/can_map.csv", "Path to can_map.csv")
		poseFrame = flag.String("pose-frame", "VEHICLE_POSE", "Frame name carrying the vehicle pose")
		cmdFrame  = flag.String("cmd-frame", "MPC_CMD", "Frame name carrying the actuator command")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger("closed_loop.log", utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open closed_loop.log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		ScenarioPath: *scenPath,
		Interface:    *iface,
		MapPath:      *mapPath,
		UseCAN:       *useCAN,
		PoseFrame:    *poseFrame,
		CmdFrame:     *cmdFrame,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
