// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command queuectl is a field client for the offline submission queue.
// Water requests are buffered on disk while the server is unreachable and
// replayed in order once it answers again.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/danielhkuo/aquadrop/auth"
	"github.com/danielhkuo/aquadrop/models"
	"github.com/danielhkuo/aquadrop/offline"
)

const usage = `usage: queuectl [flags] <command>

commands:
  enqueue   buffer a water request (-volume, -address, or -json)
  drain     submit queued requests in order until one fails
  list      show queued requests
  clear     drop every queued request
  watch     drain whenever the server becomes reachable
`

type options struct {
	dir      string
	server   string
	session  string
	interval time.Duration

	volume  int
	address string
	date    string
	notes   string
	ref     string
	raw     string
}

func main() {
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("queuectl failed", "error", err)
		os.Exit(1)
	}
}

func defaultDir() string {
	if d := os.Getenv("QUEUECTL_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aquadrop"
	}
	return filepath.Join(home, ".aquadrop")
}

func parseOptions(args []string, stderr io.Writer) (options, []string, error) {
	var o options
	flags := flag.NewFlagSet("queuectl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	server := os.Getenv("AQUADROP_SERVER")
	if server == "" {
		server = "http://localhost:3318"
	}

	flags.StringVar(&o.dir, "dir", defaultDir(), "Queue storage directory")
	flags.StringVar(&o.server, "server", server, "API base URL")
	flags.StringVar(&o.session, "session", os.Getenv("AQUADROP_SESSION"), "Session cookie value")
	flags.DurationVar(&o.interval, "interval", 5*time.Second, "Connectivity check interval for watch")
	flags.IntVar(&o.volume, "volume", 0, "Volume in liters")
	flags.StringVar(&o.address, "address", "", "Delivery address")
	flags.StringVar(&o.date, "date", "", "Preferred date (YYYY-MM-DD)")
	flags.StringVar(&o.notes, "notes", "", "Notes for the supplier")
	flags.StringVar(&o.ref, "ref", "", "Client reference (generated when empty)")
	flags.StringVar(&o.raw, "json", "", "Raw request JSON, or - for stdin")

	if err := flags.Parse(args); err != nil {
		return o, nil, err
	}
	o.server = strings.TrimRight(o.server, "/")
	return o, flags.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	o, rest, err := parseOptions(args, os.Stderr)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("exactly one command required")
	}

	storage, err := offline.NewFileStorage(o.dir)
	if err != nil {
		return err
	}
	client := &http.Client{
		Timeout: 15 * time.Second,
		// a guard redirect means the session is missing or wrong; report it as a failure
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	submitter := &offline.HTTPSubmitter{
		URL:    o.server + "/api/consumer/requests",
		Client: client,
		Header: http.Header{},
	}
	if o.session != "" {
		submitter.Header.Set("Cookie", (&http.Cookie{Name: auth.SessionCookie, Value: o.session}).String())
	}
	q := offline.New(storage, submitter.Submit)

	switch rest[0] {
	case "enqueue":
		payload, err := buildPayload(o, stdin)
		if err != nil {
			return err
		}
		before := q.Len()
		q.Enqueue(payload)
		if q.Len() == before {
			return errors.New("request could not be saved to the queue")
		}
		fmt.Fprintf(stdout, "queued (%d waiting)\n", q.Len())
	case "drain":
		report(stdout, q.Drain(ctx))
		fmt.Fprintf(stdout, "%d still queued\n", q.Len())
	case "list":
		list(stdout, q.PeekAll())
	case "clear":
		n := q.Len()
		q.Clear()
		fmt.Fprintf(stdout, "cleared %d\n", n)
	case "watch":
		w := &offline.Watcher{
			Queue:    q,
			Probe:    offline.HealthProbe(client, o.server+"/health"),
			Interval: o.interval,
			OnDrain:  func(out []offline.Outcome) { report(stdout, out) },
		}
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", rest[0])
	}
	return nil
}

// buildPayload assembles the request body. Every payload carries a
// client_ref so a replay after a lost response maps to the same request.
func buildPayload(o options, stdin io.Reader) (json.RawMessage, error) {
	var req models.CreateWaterRequest

	if o.raw != "" {
		raw := []byte(o.raw)
		if o.raw == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			raw = b
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("invalid request JSON: %w", err)
		}
	} else {
		req.VolumeLiters = o.volume
		req.DeliveryAddress = o.address
		req.Notes = o.notes
		req.ClientRef = o.ref
		if o.date != "" {
			d, err := time.Parse(time.DateOnly, o.date)
			if err != nil {
				return nil, fmt.Errorf("invalid -date: %w", err)
			}
			req.PreferredDate = &d
		}
	}

	if req.VolumeLiters <= 0 || strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, errors.New("volume and address are required")
	}
	if req.ClientRef == "" {
		req.ClientRef = uuid.NewString()
	}
	return json.Marshal(req)
}

func report(w io.Writer, outcomes []offline.Outcome) {
	for _, out := range outcomes {
		line := fmt.Sprintf("%s %s", out.Submission.ID, out.Status)
		switch {
		case out.Err != nil:
			line += ": " + out.Err.Error()
		case out.Result.ErrorCode != "":
			line += ": " + out.Result.ErrorCode
		}
		fmt.Fprintln(w, line)
	}
}

func list(w io.Writer, items []offline.QueuedSubmission) {
	if len(items) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s  %-14s  %s\n", it.ID, humanize.Time(it.QueuedAt), it.Payload)
	}
}
