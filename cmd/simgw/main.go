package main

import (
	"flag"
	"log"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/chaos"
	"main/internal/sim"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Listen host")
	port := flag.Int("port", 7496, "Listen port")
	tickInterval := flag.Duration("tick-interval", 250*time.Millisecond, "Quote interval per subscription")
	bars := flag.Int("historical-bars", 30, "Bars per historical reply")
	seed := flag.Int64("seed", 0, "Price walk seed (0=clock)")
	dropRate := flag.Float64("chaos-drop", 0, "Tick drop rate (0-1)")
	dupRate := flag.Float64("chaos-duplicate", 0, "Tick duplicate rate (0-1)")
	reorder := flag.Int("chaos-reorder", 0, "Tick reorder window (<=1 disables)")
	maxDelay := flag.Duration("chaos-max-delay", 0, "Max artificial tick delay")
	flag.Parse()

	var chaosCfg *chaos.Config
	if *dropRate > 0 || *dupRate > 0 || *reorder > 1 || *maxDelay > 0 {
		chaosCfg = &chaos.Config{
			Seed:          *seed,
			DropRate:      *dropRate,
			DuplicateRate: *dupRate,
			ReorderWindow: *reorder,
			MaxDelay:      *maxDelay,
		}
	}

	srv := sim.NewServer(sim.Config{
		Host:           *host,
		Port:           *port,
		TickInterval:   *tickInterval,
		HistoricalBars: *bars,
		Seed:           *seed,
		Chaos:          chaosCfg,
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("sim gateway start failed: %v", err)
	}

	<-sys.Shutdown()
	logs.Info("shutdown signal received")
	if err := srv.Close(); err != nil {
		logs.Errorf("close failed, err: %+v", err)
	}
}
