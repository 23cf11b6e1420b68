// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package client

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the conventional farmpush port tried after the page port.
const DefaultPort = 8080

// DefaultPath is the WebSocket route served by farmpush.
const DefaultPath = "/ws"

// Candidates builds the ordered, de-duplicated list of WebSocket URLs to try.
//
// An override URL replaces discovery entirely. Otherwise the list is the
// override port on the page host, the page port, the default port, and finally
// the host with no explicit port. The scheme is wss when the page is https.
func Candidates(opts Options) []string {
	if opts.URL != "" {
		return []string{opts.URL}
	}

	scheme, host, pagePort := pageOrigin(opts.PageURL)
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	defaultPort := opts.DefaultPort
	if defaultPort <= 0 {
		defaultPort = DefaultPort
	}

	var out []string
	seen := make(map[string]bool)
	add := func(port int) {
		hostport := host
		if port > 0 {
			hostport = net.JoinHostPort(host, strconv.Itoa(port))
		} else if strings.Contains(host, ":") {
			hostport = "[" + host + "]"
		}
		u := scheme + "://" + hostport + path
		if seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	if opts.Port > 0 {
		add(opts.Port)
	}
	add(pagePort)
	add(defaultPort)
	add(0)
	return out
}

// pageOrigin derives the socket scheme, host and effective port from the page
// URL. A missing or unparseable page falls back to http://localhost.
func pageOrigin(pageURL string) (scheme, host string, port int) {
	scheme, host, port = "ws", "localhost", 80

	u, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		return scheme, host, port
	}
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme, port = "wss", 443
	}
	if h := u.Hostname(); h != "" {
		host = h
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			port = n
		}
	}
	return scheme, host, port
}
