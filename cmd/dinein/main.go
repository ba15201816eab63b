package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/dinein/internal/app"
	"github.com/aussiebroadwan/dinein/pkg/dineinsdk"
	"github.com/aussiebroadwan/dinein/pkg/favorites"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

const usage = `usage: dinein <command> [flags]

commands:
  login         sign in and store the session on this device
  logout        sign out and forget stored credentials
  whoami        show the signed-in user
  search        search restaurant locations
  slots         list bookable times for a location and day
  book          reserve a table
  reservations  list (or cancel) your reservations
  favorites     list favorite locations
  favorite      toggle a location as favorite
`

type command func(ctx context.Context, a *app.Application, args []string, out io.Writer) error

var commands = map[string]command{
	"login":        cmdLogin,
	"logout":       cmdLogout,
	"whoami":       cmdWhoami,
	"search":       cmdSearch,
	"slots":        cmdSlots,
	"book":         cmdBook,
	"reservations": cmdReservations,
	"favorites":    cmdFavorites,
	"favorite":     cmdFavorite,
}

func main() {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	application, err := app.New(app.LoadConfig(), stderr)
	if err != nil {
		fmt.Fprintf(stderr, "dinein: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx = slogx.WithContext(ctx, application.Logger().With("command", args[0]))
	if err := cmd(ctx, application, args[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "dinein: %s\n", describe(err))
		if application.SessionExpired() || errors.Is(err, dineinsdk.ErrNoSession) {
			fmt.Fprintln(stderr, "run `dinein login` to sign in again")
		}
		return 1
	}
	return 0
}

// describe prefers the SDK's display strings for backend and transport
// failures and the plain error text for local ones, which carry the detail.
func describe(err error) string {
	var (
		apiErr *dineinsdk.APIError
		valErr *dineinsdk.ValidationError
	)
	switch {
	case errors.As(err, &apiErr), errors.As(err, &valErr),
		errors.Is(err, dineinsdk.ErrSessionExpired), errors.Is(err, dineinsdk.ErrNetwork):
		return dineinsdk.UserMessage(err)
	}
	return err.Error()
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func cmdLogin(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	last, err := a.Preferences().LastLoginEmail(ctx)
	if err != nil {
		a.Logger().Debug("no remembered email", "error", err)
	}

	fs := newFlagSet("login")
	email := fs.String("email", last, "account email")
	password := fs.String("password", os.Getenv("DINEIN_PASSWORD"), "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	s, err := a.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s (user %d)\n", displayName(s), s.UserID())
	return nil
}

func cmdLogout(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	s, err := a.Session(ctx)
	if errors.Is(err, dineinsdk.ErrNoSession) {
		fmt.Fprintln(out, "not signed in")
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "signed out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("whoami")
	showPrefs := fs.Bool("prefs", false, "also list the preferences stored on this device")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	state := "active"
	if !s.IsAuthenticated() {
		state = "expired, will refresh on next call"
	}
	fmt.Fprintf(out, "%s (user %d), token %s\n", displayName(s), s.UserID(), state)

	if !*showPrefs {
		return nil
	}
	prefs, err := a.Preferences().All(ctx)
	if err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(prefs)) {
		fmt.Fprintf(out, "  %s = %s\n", k, prefs[k])
	}
	return nil
}

func cmdSearch(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("search")
	q := fs.String("q", "", "text to search for")
	category := fs.Int64("category", 0, "category id")
	ambience := fs.Int64("ambience", 0, "ambience id")
	cursor := fs.String("cursor", "", "page cursor from a previous search")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	d, err := s.LoadDiscovery(ctx, dineinsdk.LocationQuery{
		Search:     *q,
		CategoryID: *category,
		AmbienceID: *ambience,
		Cursor:     *cursor,
		Limit:      *limit,
	})
	if err != nil {
		return err
	}

	idx, err := a.Favorites(ctx, s)
	if err != nil {
		a.Logger().Warn("favorites unavailable", "error", err)
		idx = &favorites.Index{}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCITY\tRATING\tFAV")
	for _, l := range d.Locations.Data {
		fav := ""
		if idx.IsFavorite(l.ID) {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\n", l.ID, l.Name, l.City, l.Rating, fav)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if d.Locations.Meta.HasMore() {
		fmt.Fprintf(out, "more: --cursor %s\n", d.Locations.Meta.NextCursor)
	}
	fmt.Fprintf(out, "%d categories, %d ambiences available as filters\n", len(d.Categories), len(d.Ambiences))
	return nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation(dineinsdk.DateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", dineinsdk.ErrValidation)
	}
	return d, nil
}

func cmdSlots(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("slots")
	location := fs.Int64("location", 0, "location id")
	date := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	guests := fs.Int("guests", a.Config().DefaultGuests, "party size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *location == 0 {
		return fmt.Errorf("%w: --location is required", dineinsdk.ErrValidation)
	}

	day, err := parseDate(*date)
	if err != nil {
		return err
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}
	slots, err := s.AvailableSlots(ctx, *location, day)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTABLES\tSTATUS")
	for _, v := range a.Selector().Annotate(slots, day, *guests) {
		status := "available"
		switch {
		case v.Past:
			status = "past"
		case !v.Selectable:
			status = "no table for party"
		}

		ids := make([]string, 0, len(v.Tables))
		for _, t := range v.Tables {
			ids = append(ids, fmt.Sprintf("%d(%d)", t.TableID, t.Capacity))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Slot.Time, strings.Join(ids, " "), status)
	}
	return tw.Flush()
}

func cmdBook(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("book")
	location := fs.Int64("location", 0, "location id")
	date := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	at := fs.String("time", "", "slot time as HH:MM")
	guests := fs.Int("guests", a.Config().DefaultGuests, "party size")
	table := fs.Int64("table", 0, "table id (default: tightest fit)")
	occasion := fs.Int64("occasion", 0, "occasion type id")
	duration := fs.Int("duration", 0, "duration in minutes (default 120)")
	comments := fs.String("comments", "", "notes for the restaurant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *location == 0 || *at == "" {
		return fmt.Errorf("%w: --location and --time are required", dineinsdk.ErrValidation)
	}

	day, err := parseDate(*date)
	if err != nil {
		return err
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	req := app.BookRequest{
		LocationID:      *location,
		Date:            day,
		Guests:          *guests,
		SlotTime:        *at,
		TableID:         *table,
		DurationMinutes: *duration,
		Comments:        *comments,
	}
	if *occasion != 0 {
		req.OccasionTypeID = occasion
	}

	id, t, err := a.Book(ctx, s, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reservation %d confirmed: table %d for %d on %s at %s\n",
		id, t.TableID, *guests, day.Format(dineinsdk.DateLayout), *at)
	return nil
}

func cmdReservations(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("reservations")
	status := fs.String("status", "", "filter by status")
	cursor := fs.String("cursor", "", "page cursor")
	limit := fs.Int("limit", 20, "page size")
	cancel := fs.Int64("cancel", 0, "cancel the reservation with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	if *cancel != 0 {
		if err := s.CancelReservation(ctx, *cancel); err != nil {
			return err
		}
		fmt.Fprintf(out, "reservation %d cancelled\n", *cancel)
		return nil
	}

	list, err := s.ListReservations(ctx, dineinsdk.ReservationQuery{
		UserID: s.UserID(),
		Status: *status,
		Cursor: *cursor,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOCATION\tWHEN\tGUESTS\tSTATUS")
	for _, r := range list.Data {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", r.ID, r.LocationID, r.ReservationDate, r.NumberOfGuests, r.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if list.Meta.HasMore() {
		fmt.Fprintf(out, "more: --cursor %s\n", list.Meta.NextCursor)
	}
	return nil
}

func cmdFavorites(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	idx, err := a.Favorites(ctx, s)
	if err != nil {
		return err
	}
	if idx.Len() == 0 {
		fmt.Fprintln(out, "no favorites yet")
		return nil
	}
	for _, loc := range idx.Locations() {
		fmt.Fprintf(out, "location %d\n", loc)
	}
	return nil
}

func cmdFavorite(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := newFlagSet("favorite")
	location := fs.Int64("location", 0, "location id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *location == 0 {
		return fmt.Errorf("%w: --location is required", dineinsdk.ErrValidation)
	}

	s, err := a.Session(ctx)
	if err != nil {
		return err
	}

	res, err := a.ToggleFavorite(ctx, s, *location)
	if err != nil {
		return err
	}
	switch res.Action {
	case favorites.Added:
		fmt.Fprintf(out, "location %d added to favorites\n", *location)
	case favorites.Removed:
		fmt.Fprintf(out, "location %d removed from favorites\n", *location)
	}
	return nil
}

func displayName(s *dineinsdk.Session) string {
	if name := s.Username(); name != "" {
		return name
	}
	return "unknown"
}
