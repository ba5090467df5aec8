package main

import (
	"context"
	"flag"
	"log"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/adapter"
	"main/internal/ops"
	"main/internal/schema"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	connectTimeout := flag.Duration("connect-timeout", 15*time.Second, "Gateway connect timeout")
	flag.Parse()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "broker/adapter",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"env": "local",
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	a, err := adapter.New(loaded)
	if err != nil {
		log.Fatalf("adapter build failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *connectTimeout)
	if err := a.Connect(ctx); err != nil {
		cancel()
		log.Fatalf("gateway connect failed: %v", err)
	}
	cancel()

	<-sys.Shutdown()
	logs.Info("shutdown signal received")

	if err := a.Disconnect(); err != nil {
		logs.Errorf("disconnect failed, err: %+v", err)
	}

	snap := a.Metrics()
	logs.Infof("session done, events: %d, drops: %d, reconnects: %d",
		sum(snap.EventCounts), snap.QueueDrops, snap.Reconnects)
}

func sum(counts map[schema.EventKind]uint64) uint64 {
	var total uint64
	for _, c := range counts {
		total += c
	}
	return total
}
