/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/charismamove/apiserver/pkg/client"
	"github.com/charismamove/apiserver/types"
)

var (
	clientAPI        string
	clientSessionDir string
)

// clientCmd drives the API from the terminal with a persisted session.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Terminal client for the Charisma'Move API",
}

var clientRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a rider account",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := client.Registration{
			Name:      flagString(cmd, "name"),
			Email:     flagString(cmd, "email"),
			Password:  flagString(cmd, "password"),
			FirstName: optionalFlag(cmd, "first-name"),
			Gender:    optionalFlag(cmd, "gender"),
			Phone:     optionalFlag(cmd, "phone"),
		}
		user, err := riderClient(client.Session{}).Register(cmd.Context(), reg)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), user)
	},
}

var clientLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the rider session",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := riderClient(client.Session{}).Login(cmd.Context(), flagString(cmd, "email"), flagString(cmd, "password"))
		if err != nil {
			return err
		}
		if err := riderStore().Save(session); err != nil {
			return err
		}
		shell := client.NewShell(client.RiderLayout, session)
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s, page %s\n", session.User.Email, shell.Current())
		return nil
	},
}

var clientLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the rider session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return riderStore().Clear()
	},
}

var clientProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, c, err := riderSession()
		if err != nil {
			return err
		}
		update := client.ProfileUpdate{
			Name:      optionalFlag(cmd, "name"),
			FirstName: optionalFlag(cmd, "first-name"),
			Gender:    optionalFlag(cmd, "gender"),
			Phone:     optionalFlag(cmd, "phone"),
		}

		var user types.User
		if update == (client.ProfileUpdate{}) {
			user, err = c.GetUser(cmd.Context(), session.User.ID)
		} else {
			user, err = c.UpdateUser(cmd.Context(), session.User.ID, update)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), user)
	},
}

var clientItemsCmd = &cobra.Command{
	Use:   "items [name]",
	Short: "List items, or create one when a name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := riderClient(client.Session{})
		if len(args) == 1 {
			item, err := c.CreateItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		}
		items, err := c.ListItems(cmd.Context(), flagString(cmd, "q"))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), items)
	},
}

var clientBookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List your bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := riderSession()
		if err != nil {
			return err
		}
		bookings, err := c.ListBookings(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), bookings)
	},
}

var clientBookCmd = &cobra.Command{
	Use:   "book",
	Short: "Create a booking",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := riderSession()
		if err != nil {
			return err
		}
		seats, _ := cmd.Flags().GetInt("seats")
		booking, err := c.CreateBooking(cmd.Context(), client.NewBooking{
			Departure:  flagString(cmd, "departure"),
			Arrival:    flagString(cmd, "arrival"),
			TravelDate: flagString(cmd, "date"),
			TravelTime: flagString(cmd, "time"),
			Seats:      seats,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), booking)
	},
}

var clientConfirmCmd = &cobra.Command{
	Use:   "confirm <booking-id>",
	Short: "Confirm a booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid booking id %q", args[0])
		}
		_, c, err := riderSession()
		if err != nil {
			return err
		}
		booking, err := c.ConfirmBooking(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), booking)
	},
}

var clientSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search trip announcements",
	RunE: func(cmd *cobra.Command, args []string) error {
		seats, _ := cmd.Flags().GetInt("seats")
		announcements, err := riderClient(client.Session{}).SearchAnnouncements(cmd.Context(), types.AnnouncementFilter{
			Departure:   flagString(cmd, "departure"),
			Destination: flagString(cmd, "destination"),
			MinSeats:    seats,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), announcements)
	},
}

var clientPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a trip announcement",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := riderSession()
		if err != nil {
			return err
		}
		seats, _ := cmd.Flags().GetInt("seats")
		announcement, err := c.PublishAnnouncement(cmd.Context(), client.NewAnnouncement{
			Departure:   flagString(cmd, "departure"),
			Destination: flagString(cmd, "destination"),
			Datetime:    flagString(cmd, "datetime"),
			Seats:       seats,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), announcement)
	},
}

var clientNavigateCmd = &cobra.Command{
	Use:   "navigate <page>",
	Short: "Print the page the front end would show for the stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, store := client.RiderLayout, riderStore()
		if admin, _ := cmd.Flags().GetBool("admin"); admin {
			layout, store = client.AdminLayout, adminStore()
		}
		session, err := store.Load()
		if err != nil {
			return err
		}
		shell := client.NewShell(layout, session)
		fmt.Fprintln(cmd.OutOrStdout(), shell.Navigate(client.Page(args[0])))
		return nil
	},
}

var clientAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administration commands",
}

var clientAdminLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as an administrator and store the admin session",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := riderClient(client.Session{}).AdminLogin(cmd.Context(), flagString(cmd, "email"), flagString(cmd, "password"))
		if err != nil {
			return err
		}
		if err := adminStore().Save(session); err != nil {
			return err
		}
		shell := client.NewShell(client.AdminLayout, session)
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s, page %s\n", session.User.Email, shell.Current())
		return nil
	},
}

var clientAdminLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the admin session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminStore().Clear()
	},
}

var clientAdminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		users, err := c.AdminUsers(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), users)
	},
}

var clientAdminDeleteUserCmd = &cobra.Command{
	Use:   "delete-user <id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		c, err := adminClient()
		if err != nil {
			return err
		}
		return c.DeleteUser(cmd.Context(), id)
	},
}

var clientAdminBookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List all bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		bookings, err := c.AdminBookings(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), bookings)
	},
}

var clientAdminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		stats, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var clientAdminExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the bookings workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		name, data, err := c.ExportBookings(cmd.Context())
		if err != nil {
			return err
		}
		out := flagString(cmd, "out")
		if out == "" {
			out = name
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)

	clientCmd.PersistentFlags().StringVar(&clientAPI, "api", envOr("CHARISMA_API", "http://localhost:3001"), "API base URL")
	clientCmd.PersistentFlags().StringVar(&clientSessionDir, "session-dir", defaultSessionDir(), "directory holding the stored sessions")

	for _, c := range []*cobra.Command{clientRegisterCmd, clientLoginCmd, clientAdminLoginCmd} {
		c.Flags().String("email", "", "account email")
		c.Flags().String("password", "", "account password")
	}
	for _, c := range []*cobra.Command{clientRegisterCmd, clientProfileCmd} {
		c.Flags().String("name", "", "name")
		c.Flags().String("first-name", "", "first name")
		c.Flags().String("gender", "", "gender")
		c.Flags().String("phone", "", "phone number")
	}
	clientItemsCmd.Flags().String("q", "", "filter items by name")

	clientBookCmd.Flags().String("departure", "", "pick-up city")
	clientBookCmd.Flags().String("arrival", "", "drop-off city")
	clientBookCmd.Flags().String("date", "", "travel date, YYYY-MM-DD")
	clientBookCmd.Flags().String("time", "", "travel time, HH:MM")
	clientBookCmd.Flags().Int("seats", 1, "number of seats")

	for _, c := range []*cobra.Command{clientSearchCmd, clientPublishCmd} {
		c.Flags().String("departure", "", "departure city")
		c.Flags().String("destination", "", "destination city")
	}
	clientSearchCmd.Flags().Int("seats", 0, "minimum number of seats")
	clientPublishCmd.Flags().String("datetime", "", "departure time, e.g. 2026-07-01T08:30")
	clientPublishCmd.Flags().Int("seats", 1, "offered seats")

	clientNavigateCmd.Flags().Bool("admin", false, "use the admin front end")
	clientAdminExportCmd.Flags().String("out", "", "output file (defaults to the server's file name)")

	clientAdminCmd.AddCommand(
		clientAdminLoginCmd,
		clientAdminLogoutCmd,
		clientAdminUsersCmd,
		clientAdminDeleteUserCmd,
		clientAdminBookingsCmd,
		clientAdminStatsCmd,
		clientAdminExportCmd,
	)
	clientCmd.AddCommand(
		clientRegisterCmd,
		clientLoginCmd,
		clientLogoutCmd,
		clientProfileCmd,
		clientItemsCmd,
		clientBookingsCmd,
		clientBookCmd,
		clientConfirmCmd,
		clientSearchCmd,
		clientPublishCmd,
		clientNavigateCmd,
		clientAdminCmd,
	)
}

func riderStore() *client.SessionStore {
	return client.RiderSessionStore(clientSessionDir)
}

func adminStore() *client.SessionStore {
	return client.AdminSessionStore(clientSessionDir)
}

func riderClient(session client.Session) *client.Client {
	return client.New(clientAPI, client.WithToken(session.Token))
}

// riderSession loads the stored rider session; protected commands need one.
func riderSession() (client.Session, *client.Client, error) {
	session, err := riderStore().Load()
	if err != nil {
		return client.Session{}, nil, err
	}
	shell := client.NewShell(client.RiderLayout, session)
	if !shell.IsAuthenticated() {
		return client.Session{}, nil, fmt.Errorf("not logged in, run: charisma client login")
	}
	return session, riderClient(session), nil
}

func adminClient() (*client.Client, error) {
	session, err := adminStore().Load()
	if err != nil {
		return nil, err
	}
	if !session.Valid() {
		return nil, fmt.Errorf("not logged in, run: charisma client admin login")
	}
	return client.New(clientAPI, client.WithToken(session.Token)), nil
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

// optionalFlag returns nil unless the flag was given on the command line.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value := flagString(cmd, name)
	return &value
}

func printJSON(w io.Writer, value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".charisma"
	}
	return filepath.Join(dir, "charisma")
}
