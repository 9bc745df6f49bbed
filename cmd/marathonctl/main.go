// Command marathonctl reads and updates a marathon training calendar from the terminal.
//
//	marathonctl [-server URL] login -email runner@example.com   (password from MARATHON_PASSWORD or stdin)
//	marathonctl status
//	marathonctl toggle 3 Sat
//	marathonctl cheer 3 Sat "long run, you got this"
//	marathonctl uncheer 3 Sat <cheer-id>
//	marathonctl passwd   (current and new password on two lines of stdin)
//	marathonctl logout
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"marathon/internal/adapters/client"
	"marathon/internal/application/calendarsync"
	"marathon/internal/application/projections"
	"marathon/internal/domain/plan"
)

const defaultServer = "http://localhost:8080"

var errUsage = errors.New("usage: marathonctl [-server URL] [-token-file PATH] login|logout|passwd|status|toggle|cheer|uncheer ...")

func main() {
	env := environment{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		getenv: os.Getenv,
		now:    time.Now,
	}
	if err := run(context.Background(), os.Args[1:], env); err != nil {
		fmt.Fprintln(os.Stderr, "marathonctl:", err)
		os.Exit(1)
	}
}

// environment is everything run touches outside its arguments.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	getenv func(string) string
	now    func() time.Time
}

func run(ctx context.Context, args []string, env environment) error {
	fs := flag.NewFlagSet("marathonctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	server := fs.String("server", envOr(env.getenv, "MARATHON_SERVER", defaultServer), "server base URL")
	tokenFile := fs.String("token-file", defaultTokenFile(env.getenv), "where the session token is kept")
	seasonStart := fs.String("season-start", env.getenv("MARATHON_SEASON_START"), "season start date (YYYY-MM-DD) for marking today")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	c := client.New(*server)
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "login" {
		return login(ctx, c, rest, *tokenFile, env)
	}

	token, err := readToken(*tokenFile)
	if err != nil {
		return err
	}
	c.Token = token
	if cmd == "logout" {
		if err := c.Logout(ctx); err != nil {
			return err
		}
		return os.Remove(*tokenFile)
	}
	if cmd == "passwd" {
		return passwd(ctx, c, env)
	}

	sess, err := c.Whoami(ctx)
	if err != nil {
		return fmt.Errorf("session: %w (run marathonctl login)", err)
	}
	s := calendarsync.New(c, sess.IsAdmin(), calendarsync.Options{OnlyCompleted: true, Now: env.now})
	if err := s.LoadAll(ctx); err != nil {
		return err
	}

	switch cmd {
	case "status":
		start, err := parseSeasonStart(*seasonStart, env.now())
		if err != nil {
			return err
		}
		printStatus(env.stdout, s.Snapshot(), start, env.now(), sess.IsAdmin())
		return nil

	case "toggle":
		key, _, err := keyArgs(rest, 0)
		if err != nil {
			return err
		}
		done, err := s.ToggleCompletion(ctx, key.Week, key.Day)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "week %d %s: %s\n", key.Week, key.Day, doneLabel(done))
		return nil

	case "cheer":
		key, extra, err := keyArgs(rest, 1)
		if err != nil {
			return err
		}
		message := strings.Join(extra, " ")
		if strings.TrimSpace(message) == "" {
			return errors.New("cheer: message is empty")
		}
		if err := s.AddCheer(ctx, key.Week, key.Day, message); err != nil {
			return err
		}
		cheers := s.Snapshot().Cheers[key]
		fmt.Fprintf(env.stdout, "cheer %s posted to week %d %s\n", cheers[len(cheers)-1].ID, key.Week, key.Day)
		return nil

	case "uncheer":
		key, extra, err := keyArgs(rest, 1)
		if err != nil {
			return err
		}
		if len(extra) != 1 {
			return errors.New("uncheer: expected exactly one cheer id")
		}
		if err := s.DeleteCheer(ctx, key, extra[0]); err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "cheer %s removed\n", extra[0])
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func login(ctx context.Context, c *client.Client, args []string, tokenFile string, env environment) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", env.getenv("MARATHON_EMAIL"), "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("login: -email is required")
	}
	password := env.getenv("MARATHON_PASSWORD")
	if password == "" {
		line, err := bufio.NewReader(env.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}

	sess, err := c.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	if err := writeToken(tokenFile, sess.Token); err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "logged in as %s (%s)\n", sess.Email, sess.Role)
	return nil
}

// passwd reads the current and the new password from two lines of stdin.
func passwd(ctx context.Context, c *client.Client, env environment) error {
	r := bufio.NewReader(env.stdin)
	var lines [2]string
	for i := range lines {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		lines[i] = strings.TrimRight(line, "\r\n")
	}
	if lines[0] == "" || lines[1] == "" {
		return errors.New("passwd: expected the current and the new password on stdin")
	}
	if err := c.ChangePassword(ctx, lines[0], lines[1]); err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, "password changed")
	return nil
}

// keyArgs parses "<week> <day>" and returns the remaining args, requiring at least minExtra of them.
func keyArgs(args []string, minExtra int) (plan.Key, []string, error) {
	if len(args) < 2+minExtra {
		return plan.Key{}, nil, errUsage
	}
	week, err := strconv.Atoi(args[0])
	if err != nil || !plan.ValidWeek(week) {
		return plan.Key{}, nil, fmt.Errorf("week must be between 1 and %d, got %q", plan.WeekCount(), args[0])
	}
	day, err := plan.ParseDay(args[1])
	if err != nil {
		return plan.Key{}, nil, err
	}
	return plan.NewKey(week, day), args[2:], nil
}

func printStatus(w io.Writer, snap calendarsync.Snapshot, seasonStart, now time.Time, isAdmin bool) {
	view := projections.QueryCalendar(now, seasonStart, snap, isAdmin)
	fmt.Fprintf(w, "%s\n%s\n%s\n\n", view.Title, view.Goal, view.Span)
	for _, wk := range view.Weeks {
		fmt.Fprintf(w, "Week %-2d %-6s - %-6s ", wk.WeekNum, wk.Start, wk.End)
		for _, c := range wk.Cells {
			mark := "."
			if c.IsCompleted {
				mark = "x"
			}
			if c.IsToday {
				mark = "[" + mark + "]"
			} else {
				mark = " " + mark + " "
			}
			if c.CheerCount > 0 {
				mark += strconv.Itoa(c.CheerCount)
			} else {
				mark += " "
			}
			fmt.Fprintf(w, "%s %s ", c.Key.Day, mark)
		}
		fmt.Fprintln(w)
	}

	progress := projections.SummarizeProgress(view)
	fmt.Fprintf(w, "\n%d of %d workouts done (%d%%)\n", progress.Done, progress.Total, progress.Percent())
	if today, ok := view.Today(); ok {
		fmt.Fprintf(w, "Today (week %d %s): %s\n", today.Key.Week, today.Key.Day, today.Workout)
	}
}

func doneLabel(done bool) string {
	if done {
		return "done"
	}
	return "not done"
}

func parseSeasonStart(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return plan.DefaultSeasonStart(now), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("season start: expected YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile(getenv func(string) string) string {
	if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "marathonctl", "token")
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "marathonctl", "token")
	}
	return ".marathonctl-token"
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.New("not logged in (run marathonctl login)")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}
