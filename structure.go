package main

import "time"

type config struct {
	Username         string    `fig:"username" yaml:"username" validate:"required"`
	Password         string    `fig:"password" yaml:"password" validate:"required"`
	Feeds            []string  `fig:"feeds" yaml:"feeds" validate:"required"`
	LastDate         time.Time `fig:"-" yaml:"last_date,omitempty"`
	UsePosterousHack bool      `fig:"use_posterous_hack" yaml:"use_posterous_hack"`
	Server           string    `fig:"server" yaml:"server,omitempty" default:"http://www.livejournal.com/interface/xmlrpc"`
	SanitizeHTML     bool      `fig:"sanitize_html" yaml:"sanitize_html,omitempty"`
	Interval         string    `fig:"interval" yaml:"interval,omitempty"`
	LogLevel         string    `fig:"loglevel" yaml:"loglevel,omitempty" default:"informational"`

	// Where the config was loaded from, and where persist writes it back
	path string
}

// item is a single feed entry, already decoded to UTF-8
type item struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
}

// entry is what gets submitted to the blog
type entry struct {
	Subject   string
	Body      string
	Time      time.Time
	Backdated bool
}

type challengeAuth struct {
	Challenge string
	Response  string
}
