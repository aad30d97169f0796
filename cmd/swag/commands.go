package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MensaSverige/swagapp-sub001/events"
	"github.com/MensaSverige/swagapp-sub001/geo"
	"github.com/MensaSverige/swagapp-sub001/session"
	"github.com/MensaSverige/swagapp-sub001/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in")

func printUserError(cmd *cobra.Command, err error) {
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), session.UserMessage(err))
}

func newLoginCmd() *cobra.Command {
	var username, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store tokens on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				password = os.Getenv("SWAG_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("--password or SWAG_PASSWORD is required")
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Session.Login(cmd.Context(), username, password, remember)
			if err != nil {
				printUserError(cmd, err)
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "member username")
	cmd.Flags().StringVar(&password, "password", "", "password (defaults to $SWAG_PASSWORD)")
	cmd.Flags().BoolVar(&remember, "remember", false, "keep username and password for silent re-login")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Erase every stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := <-a.Session.Logout(cmd.Context()); err != nil {
				printUserError(cmd, err)
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			user := a.Store.Snapshot().CurrentUser
			if user == nil {
				return errNotLoggedIn
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.DisplayName(), user.ID)
			return nil
		},
	}
}

func newEventsCmd() *cobra.Command {
	var query string
	var withLocation bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming and ongoing events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Store.SetFilter(store.Filter{Query: query, OnlyWithLocation: withLocation})
			a.Events.Refresh(cmd.Context())
			if err := a.Events.LastError(); err != nil {
				printUserError(cmd, err)
			}
			printEvents(cmd.OutOrStdout(), a.Store.Snapshot(), time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "only events mentioning this text")
	cmd.Flags().BoolVar(&withLocation, "with-location", false, "only events that can be shown on a map")
	return cmd
}

func printEvents(w io.Writer, snap store.Session, now time.Time) {
	visible := snap.VisibleEvents(now)
	if len(visible) == 0 {
		_, _ = fmt.Fprintln(w, "no events")
		return
	}
	for _, r := range visible {
		when := r.Start.Local().Format("Mon 02 Jan 15:04")
		if r.End != nil {
			when += " - " + r.End.Local().Format("15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", when, r.Kind, r.Title, r.Address)
	}
	if !snap.EventsFetchedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "updated %s ago\n", now.Sub(snap.EventsFetchedAt).Round(time.Second))
	}
}

func newNearbyCmd() *cobra.Command {
	var radius float64

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Group members sharing their location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Locations.Refresh(cmd.Context())
			if err := a.Locations.LastError(); err != nil {
				printUserError(cmd, err)
			}
			printNearby(cmd.OutOrStdout(), a.Store.Snapshot().VisibleLocations(), radius)
			return nil
		},
	}
	cmd.Flags().Float64Var(&radius, "radius", 500, "grouping radius in meters")
	return cmd
}

func printNearby(w io.Writer, locations []events.UserLocation, radius float64) {
	if len(locations) == 0 {
		_, _ = fmt.Fprintln(w, "nobody is sharing their location")
		return
	}

	points := make([]geo.Coordinate, len(locations))
	for i, l := range locations {
		points[i] = *l.Location
	}
	clusters := geo.Cluster(points, radius)
	for i, circle := range geo.ClusterCenters(points, clusters) {
		names := make([]string, 0, len(clusters[i]))
		for _, idx := range clusters[i] {
			names = append(names, locations[idx].Name)
		}
		_, _ = fmt.Fprintf(w, "%.5f,%.5f\twithin %.0f m\t%s\n",
			circle.Center.Latitude, circle.Center.Longitude, circle.RadiusMeters, strings.Join(names, ", "))
	}
}

func newWatchCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep events and locations fresh until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if metricsAddr != "" {
				server := newMetricsServer(metricsAddr, a.MetricsHandler())
				go func() {
					if err := listenAndServe(server); err != nil {
						_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}()
				defer func() {
					if err := shutdown(server); err != nil {
						_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}()
			}

			out := cmd.OutOrStdout()
			unsubscribe := a.Store.Subscribe(func(snap store.Session) {
				_, _ = fmt.Fprintf(out, "%s\t%d events\t%d members nearby\n",
					time.Now().Format(time.TimeOnly), len(snap.VisibleEvents(time.Now())), len(snap.VisibleLocations()))
			})
			defer unsubscribe()

			consumer := uuid.NewString()
			a.Events.Subscribe(consumer)
			a.Locations.Subscribe(consumer)
			defer a.Events.Unsubscribe(consumer)
			defer a.Locations.Unsubscribe(consumer)

			waitForStopSignal(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}
