// Command rowflowctl registers accounts, logs sessions and prints yearly
// statistics directly against the configured store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/mmynk/rowflow/internal/auth"
	"github.com/mmynk/rowflow/internal/backend"
	"github.com/mmynk/rowflow/internal/calculator"
	"github.com/mmynk/rowflow/internal/config"
	"github.com/mmynk/rowflow/internal/ledger"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/normalizer"
	"github.com/mmynk/rowflow/pkg/logging"
)

const usage = `usage: rowflowctl <command> [flags]

commands:
  register -user NAME            create an account
  log      -user NAME [flags]    record a training session
  stats    -user NAME [-year N]  print monthly totals for a year
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rowflowctl:", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs.
type app struct {
	directory *auth.Directory
	ledger    *ledger.Ledger
	in        *bufio.Reader
	stdin     io.Reader
	out       io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	_ = godotenv.Load()
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level)

	store, err := backend.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	l := ledger.New(store, ledger.WithLogger(logger))
	a := &app{
		directory: auth.NewDirectory(store, l, cfg.Auth.BcryptCost),
		ledger:    l,
		in:        bufio.NewReader(stdin),
		stdin:     stdin,
		out:       out,
	}

	switch args[0] {
	case "register":
		return a.register(ctx, args[1:])
	case "log":
		return a.log(ctx, args[1:])
	case "stats":
		return a.stats(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	user := fs.String("user", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := a.password("Password: ")
	if err != nil {
		return err
	}
	account, err := a.directory.Register(ctx, *user, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered %s\n", account.Username)
	return nil
}

func (a *app) log(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	user := fs.String("user", "", "username")
	date := fs.String("date", "", "session date (YYYY-MM-DD, default today)")
	distance := fs.String("distance", "", "distance in km")
	duration := fs.String("duration", "", "duration in minutes")
	speed := fs.String("speed", "", "average speed in km/h")
	sessionType := fs.String("type", string(models.SessionWater), "session type")
	notes := fs.String("notes", "", "free text notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	account, err := a.login(ctx, *user)
	if err != nil {
		return err
	}

	entry := normalizer.Normalize(map[string]string{
		models.FieldDate:        *date,
		models.FieldDistanceKM:  *distance,
		models.FieldDurationMin: *duration,
		models.FieldSpeedKMH:    *speed,
		models.FieldSessionType: *sessionType,
		models.FieldNotes:       *notes,
	})
	if err := a.ledger.Append(ctx, account.StorageID, entry); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "logged %s %.2f km %s\n", entry.Date, entry.DistanceKM.Or(0), entry.SessionType)
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	user := fs.String("user", "", "username")
	year := fs.Int("year", time.Now().Year(), "calendar year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	account, err := a.login(ctx, *user)
	if err != nil {
		return err
	}
	entries, err := a.ledger.ReadAll(ctx, account.StorageID)
	if err != nil {
		return err
	}

	printSummary(a.out, calculator.Summarize(entries, *year))
	return nil
}

func (a *app) login(ctx context.Context, user string) (*models.Account, error) {
	password, err := a.password("Password: ")
	if err != nil {
		return nil, err
	}
	return a.directory.Authenticate(ctx, user, password)
}

// password prompts without echo on a terminal and reads one line otherwise.
func (a *app) password(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printSummary(w io.Writer, s calculator.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "month\t")
	for _, t := range models.SessionTypes {
		fmt.Fprintf(tw, "%s\t", t)
	}
	fmt.Fprintln(tw, "total\t")

	for m := time.January; m <= time.December; m++ {
		key := calculator.MonthKey(m)
		fmt.Fprintf(tw, "%s\t", key)
		total := 0.0
		for _, t := range models.SessionTypes {
			km := s.Monthly[key][t]
			total += km
			fmt.Fprintf(tw, "%.2f\t", km)
		}
		fmt.Fprintf(tw, "%.2f\t\n", total)
	}
	tw.Flush()

	yearTotal := 0.0
	if n := len(s.Cumulative); n > 0 {
		yearTotal = s.Cumulative[n-1].KM
	}
	fmt.Fprintf(w, "\n%d total: %.2f km\n", s.Year, yearTotal)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "%d rows skipped (unreadable date)\n", s.Skipped)
	}
}
