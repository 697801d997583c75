package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
)

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

// run is main without the exit, returning the process status
func run(args []string, stdout io.Writer) int {
	if len(args) != 2 {
		name := "rssLJ"
		if len(args) > 0 {
			name = filepath.Base(args[0])
		}
		fmt.Fprintf(stdout, "Usage: %s config.yml\n", name)
		fmt.Fprintln(stdout, "The config file must be YAML, named *.yml or *.yaml")
		return 1
	}

	lit.LogLevel = lit.LogInformational

	cfg, err := loadConfig(args[1])
	if err != nil {
		lit.Error(err.Error())
		return 1
	}

	setLogLevel(cfg.LogLevel)

	lj, err := newLiveJournal(cfg.Server, cfg.Username, cfg.Password)
	if err != nil {
		lit.Error(err.Error())
		return 1
	}

	r := newReposter(cfg, lj, func(feed string) ([]item, error) {
		return getRSS(http.DefaultClient, feed)
	})

	if cfg.Interval == "" {
		if err = r.run(); err != nil {
			lit.Error(err.Error())
			return 1
		}
		return 0
	}

	if err = startCron(cfg.interval(), r); err != nil {
		lit.Error(err.Error())
		return 1
	}
	return 0
}

// startCron runs the reposter every interval, never two runs at once
func startCron(every time.Duration, r *reposter) error {
	cron := gocron.NewScheduler(time.Local)
	cron.SingletonModeAll()

	_, err := cron.Every(every).Do(func() {
		if err := r.run(); err != nil {
			lit.Error("Error reposting, %s", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "starting cron job")
	}

	lit.Info("rssLJ started, checking %d feeds every %s", len(r.cfg.Feeds), every)
	cron.StartBlocking()
	return nil
}
