package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"main/internal/recorder"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/journal", "Journal directory")
	prefix := flag.String("prefix", "", "Journal file prefix (default: journal)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Print decoded payload details")
	flag.Parse()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	var index int
	err = pb.Run(context.Background(), func(ev schema.Event) error {
		index++
		fmt.Printf("%06d %s recv=%s\n", index, ev.Kind, ev.RecvAt.Format("15:04:05.000000"))
		if *decode {
			printDecoded(ev)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}

func printDecoded(ev schema.Event) {
	switch ev.Kind {
	case schema.EventOrderStatus:
		s := ev.OrderStatus
		fmt.Printf("  order=%d status=%s filled=%.4f remaining=%.4f avg=%.4f\n",
			s.OrderID, s.Status, s.FilledQty, s.Remaining, s.AvgPrice)
	case schema.EventExecution:
		e := ev.Execution
		fmt.Printf("  order=%d exec=%s qty=%.4f price=%.4f\n",
			e.OrderID, e.ExecID, e.Quantity, e.Price)
	case schema.EventCommission:
		c := ev.Commission
		fmt.Printf("  exec=%s commission=%.4f %s\n", c.ExecID, c.Commission, c.Currency)
	case schema.EventTick:
		tk := ev.Tick
		fmt.Printf("  req=%d field=%d value=%.4f\n", tk.RequestID, tk.Field, tk.Value)
	case schema.EventHistoricalBar:
		b := ev.HistoricalBar
		fmt.Printf("  req=%d time=%d o=%.4f h=%.4f l=%.4f c=%.4f\n",
			b.RequestID, b.Time, b.Open, b.High, b.Low, b.Close)
	case schema.EventError:
		se := ev.Error
		fmt.Printf("  req=%d code=%d msg=%s\n", se.RequestID, se.Code, se.Message)
	}
}
