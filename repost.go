package main

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

// Posterous puts a stray tab, sometimes followed by empty tags, in its descriptions
var posterousRe = regexp.MustCompile(`\t(<head></head>)?(</h1>)?`)

type blog interface {
	mostRecentUpdate() (time.Time, error)
	post(e entry) error
}

type reposter struct {
	cfg       *config
	blog      blog
	fetch     func(feedURL string) ([]item, error)
	sanitizer *bluemonday.Policy

	// Newest post known to be on the journal during this run
	mostRecent time.Time
}

func newReposter(cfg *config, b blog, fetch func(string) ([]item, error)) *reposter {
	r := &reposter{cfg: cfg, blog: b, fetch: fetch}
	if cfg.SanitizeHTML {
		r.sanitizer = bluemonday.UGCPolicy()
	}

	return r
}

// run reposts every new item of every feed. Any error stops the run; the
// watermark saved so far is kept.
func (r *reposter) run() error {
	var err error
	r.mostRecent, err = r.blog.mostRecentUpdate()
	if err != nil {
		return err
	}

	for _, feed := range r.cfg.Feeds {
		items, err := r.fetch(feed)
		if err != nil {
			return err
		}

		// Feeds list the newest item first
		slices.Reverse(items)
		for _, it := range items {
			if err = r.repost(it); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *reposter) repost(it item) error {
	lit.Info("Loading %s", it.Title)

	// Checked against the saved watermark, so a rerun or an out of order feed doesn't post twice
	if !r.cfg.LastDate.IsZero() && !r.cfg.LastDate.Before(it.Published) {
		lit.Info("%s is older than %s, skipping", it.Published, r.cfg.LastDate)
		return nil
	}

	backdated := false
	if !r.mostRecent.IsZero() && r.mostRecent.After(it.Published) {
		backdated = true
	} else {
		r.mostRecent = it.Published
	}

	err := r.blog.post(entry{
		Subject:   it.Title,
		Body:      r.body(it),
		Time:      it.Published,
		Backdated: backdated,
	})
	if err != nil {
		return err
	}

	if r.cfg.LastDate.IsZero() || r.cfg.LastDate.Before(it.Published) {
		r.cfg.LastDate = it.Published
		if err = r.cfg.persist(); err != nil {
			return errors.Wrap(err, "saving last_date")
		}
	}

	return nil
}

func (r *reposter) body(it item) string {
	description := it.Description
	if r.sanitizer != nil {
		description = r.sanitizer.Sanitize(description)
	}

	link := html.EscapeString(it.Link)
	body := fmt.Sprintf("%s\n<p>Reposted from <a href=\"%s\">%s</a></p>\n", description, link, link)

	if r.cfg.UsePosterousHack {
		body = posterousHack(body)
	}

	return body
}

func posterousHack(body string) string {
	return posterousRe.ReplaceAllString(body, "")
}
