package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abyssdigger/fwlgr"
	"github.com/abyssdigger/fwlgr/appender"
	"github.com/abyssdigger/fwlgr/config"
	"go.uber.org/zap"
)

type sensor struct {
	id int
}

func (s *sensor) LogName() string { return fmt.Sprintf("sensor-%d", s.id) }

func main() {
	cfgPath := flag.String("config", "", "YAML logging configuration")
	flag.Parse()

	lg := fwlgr.Default()
	defer lg.Close()

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err == nil {
			err = cfg.Apply(lg)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	} else {
		lg.AddAppender(appender.NewConsole(os.Stdout, nil)).
			UseQueue(64, 200*time.Millisecond).
			HookNative(true).
			HookConsole(fwlgr.DEFAULT_CONSOLE_BUFF)
	}

	app := lg.Named("demo")
	app.Info("starting")
	for level := fwlgr.LVL_ERROR; level <= fwlgr.LVL_VERBOSE; level++ {
		app.Logf(level, "message at %s", level)
	}

	s := &sensor{id: 7}
	lg.LoggerFor(s).SetLevel(fwlgr.LVL_VERBOSE).Verbosef("reading %.2f", 21.5)

	// platform and third-party output joins the pipeline through the hooks
	p := lg.Platform()
	p.Logf('W', "wifi", "link down, retry in %ds", 5)
	p.Vprintf("I single stage line\n")
	p.Printf("[E] console line\n")

	zlog := zap.New(lg.ZapCore()).Named("mqtt")
	zlog.Info("connected", zap.String("broker", "tcp://localhost:1883"))

	fmt.Fprintf(app.Lvl(fwlgr.LVL_WARNING), "disk low: %d%%", 93)
	app.Info("done")
}
