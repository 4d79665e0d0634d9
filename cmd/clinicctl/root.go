package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicbook/internal/client"
)

type globals struct {
	baseURL  string
	token    string
	timeZone string
}

func (g *globals) client() *client.Client {
	opts := []client.Option{}
	if g.token != "" {
		opts = append(opts, client.WithToken(g.token))
	}
	if g.timeZone != "" {
		opts = append(opts, client.WithTimeZone(g.timeZone))
	}
	return client.New(g.baseURL, opts...)
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operate the clinic appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.baseURL, "base-url", os.Getenv("CLINIC_API_URL"), "API base URL (env CLINIC_API_URL)")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("CLINIC_API_TOKEN"), "session token from check-access (env CLINIC_API_TOKEN)")
	root.PersistentFlags().StringVar(&g.timeZone, "tz", "", "IANA time zone sent to the server (default: local zone)")

	root.AddCommand(
		newCheckAccessCommand(g),
		newLocationsCommand(g),
		newAppointmentsCommand(g),
		newUsersCommand(g),
		newDBCommand(),
	)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCheckAccessCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check-access EMAIL",
		Short: "Ask whether an email is on the allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().CheckAccess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func newLocationsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List clinic locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locations, err := g.client().Locations(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, locations)
		},
	}
}
