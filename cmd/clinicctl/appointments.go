package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicbook/internal/api"
	"github.com/clinicbook/internal/timeutil"
	"github.com/clinicbook/internal/client"
)

func newAppointmentsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appt"},
		Short:   "List, book, update and delete appointments",
	}
	cmd.AddCommand(
		newListAppointmentsCommand(g),
		newBookAppointmentCommand(g),
		newUpdateAppointmentCommand(g),
		newDeleteAppointmentCommand(g),
	)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newListAppointmentsCommand(g *globals) *cobra.Command {
	var (
		date     string
		location int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the appointments on a calendar day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tz := g.timeZone
			if tz == "" {
				tz = client.LocalTimeZone()
			}
			loc, err := timeutil.LoadLocation(tz, time.UTC)
			if err != nil {
				return err
			}
			day := time.Now().In(loc)
			if date != "" {
				if day, err = time.ParseInLocation(timeutil.DateLayout, date, loc); err != nil {
					return fmt.Errorf("--date: %w", timeutil.ErrInvalidDate)
				}
			}

			var locationID *int64
			if location > 0 {
				locationID = &location
			}
			list, err := g.client().AppointmentsByDate(cmd.Context(), day, locationID)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default: today)")
	cmd.Flags().Int64Var(&location, "location", 0, "clinic location id (default: all)")
	return cmd
}

func newBookAppointmentCommand(g *globals) *cobra.Command {
	var (
		b   api.Booking
		loc int64
		key string
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b.ClinicLocation = api.FlexInt(loc)
			if err := g.client().PersistAppointment(cmd.Context(), b, key); err != nil {
				return err
			}
			return printJSON(cmd, api.Envelope{Success: true})
		},
	}
	f := cmd.Flags()
	f.StringVar(&b.DateTime, "datetime", "", "local wall-clock time, e.g. 2024-03-10T09:30")
	f.StringVar(&b.Name, "name", "", "patient name")
	f.Int64Var(&loc, "location", 0, "clinic location id")
	f.StringVar(&b.Phone, "phone", "", "patient mobile number")
	f.StringVar(&b.Notes, "notes", "", "booking notes")
	f.StringVar(&b.UpdatedBy, "by", "", "email of the person booking")
	f.StringVar(&key, "idempotency-key", "", "replay-safe key for retries")
	_ = cmd.MarkFlagRequired("datetime")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newUpdateAppointmentCommand(g *globals) *cobra.Command {
	var (
		ch     api.AppointmentChanges
		loc    int64
		amount float64
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Overwrite an appointment; omitted fields are reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ch.ID = api.FlexInt(id)
			ch.ClinicID = api.FlexInt(loc)
			ch.Amount = api.FlexFloat(amount)
			updated, err := g.client().UpdateAppointment(cmd.Context(), ch)
			if err != nil {
				return err
			}
			return printJSON(cmd, api.Envelope{Success: true, Data: api.UpdatedID{ID: updated}})
		},
	}
	f := cmd.Flags()
	f.StringVar(&ch.PatientName, "name", "", "patient name")
	f.StringVar(&ch.PhoneNumber, "phone", "", "patient mobile number")
	f.StringVar(&ch.Status, "status", "", "scheduled, completed or cancelled")
	f.StringVar(&ch.Diagnosis, "diagnosis", "", "diagnosis")
	f.StringVar(&ch.Notes, "notes", "", "notes")
	f.Float64Var(&amount, "amount", 0, "amount charged")
	f.StringVar(&ch.UpdatedBy, "by", "", "email of the person updating")
	f.Int64Var(&loc, "location", 0, "clinic location id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newDeleteAppointmentCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := g.client().DeleteAppointment(cmd.Context(), id); err != nil {
				return err
			}
			return printJSON(cmd, api.Envelope{Success: true})
		},
	}
}
