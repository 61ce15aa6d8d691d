package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/glennpratt/retry/notify"
	redisnotify "github.com/glennpratt/retry/notify/redis"
	"github.com/glennpratt/retry/notify/webhook"
	"github.com/glennpratt/retry/policy"
)

// buildPolicy assembles the retry policy from the parsed flags,
// starting from the documented defaults.
func buildPolicy(c *cli.Context) (policy.RetryPolicy, error) {
	pol := policy.Default()

	if s := c.String("retry-timeout"); s != "" {
		d, err := parseDuration(s)
		if err != nil {
			return pol, fmt.Errorf("invalid --retry-timeout %q: %w", s, err)
		}
		pol.Timeout = d
	}

	if s := c.String("retry-delay"); s != "" {
		d, err := parseDuration(s)
		if err != nil {
			return pol, fmt.Errorf("invalid --retry-delay %q: %w", s, err)
		}
		pol.Delay = d
	}

	if c.IsSet("retry-until") {
		pol.Until = policy.NewCodeSet(c.IntSlice("retry-until")...)
	}
	if c.IsSet("retry-on") {
		pol.On = policy.NewCodeSet(c.IntSlice("retry-on")...)
	}

	for _, s := range c.StringSlice("rewrite") {
		rule, err := parseRewrite(s)
		if err != nil {
			return pol, err
		}
		pol.Rewrite = append(pol.Rewrite, rule)
	}

	if err := pol.Validate(); err != nil {
		return pol, err
	}
	return pol, nil
}

// parseDuration accepts either a bare (possibly fractional) number of
// seconds, or a Go duration string like 1m30s.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		// ParseFloat accepts inf/nan; the conversion to time.Duration
		// would be garbage, so reject them here.
		if math.IsInf(secs, 0) || math.IsNaN(secs) {
			return 0, fmt.Errorf("expected a finite number of seconds")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("expected seconds or a duration like 1m30s")
	}
	return d, nil
}

// parseRewrite parses one --rewrite value of the form A=B.
func parseRewrite(s string) (policy.Rule, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok {
		return policy.Rule{}, fmt.Errorf("invalid --rewrite %q: expected A=B", s)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return policy.Rule{}, fmt.Errorf("invalid --rewrite %q: %q is not an exit code", s, from)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return policy.Rule{}, fmt.Errorf("invalid --rewrite %q: %q is not an exit code", s, to)
	}
	return policy.Rule{From: f, To: t}, nil
}

// buildNotifier constructs the run-finished notifier from --notify,
// dispatching on the URL scheme. Nil when --notify is absent.
func buildNotifier(c *cli.Context) (notify.Notifier, error) {
	raw := c.String("notify")
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --notify URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "http", "https":
		return webhook.New(webhook.Config{URL: raw})
	case "redis", "rediss":
		return redisnotify.New(redisnotify.Config{
			URL:     raw,
			Channel: c.String("notify-channel"),
		})
	default:
		return nil, fmt.Errorf("invalid --notify URL %q: scheme must be http(s) or redis", raw)
	}
}
