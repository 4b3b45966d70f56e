package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"driver-punch-api-server/internal/app"
	"driver-punch-api-server/internal/database"
	"driver-punch-api-server/internal/drivers"
	"driver-punch-api-server/internal/export"
	"driver-punch-api-server/internal/models"
)

func newSeedAdminCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator from seed.adminEmail / seed.adminPassword",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				created, err := database.SeedAdmin(ctx, a.Users, a.Config.Seed, a.Log)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "admin created")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
				}
				return nil
			})
		},
	}
}

func newDriversCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "drivers", Short: "Manage the driver directory"}

	var in drivers.CreateInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				d, err := a.Drivers.Create(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.DriverID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.DriverID, "id", "", "external driver id (generated when empty)")
	create.Flags().StringVar(&in.Name, "name", "", "full name")
	create.Flags().StringVar(&in.Email, "email", "", "contact email")
	create.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	create.Flags().StringVar(&in.PIN, "pin", "", "4 to 8 digit PIN")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("pin")

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				w := table(cmd.OutOrStdout())
				fmt.Fprintln(w, "DRIVER ID\tNAME\tACTIVE\tFACE")
				for _, d := range a.Drivers.List(ctx, activeOnly) {
					fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", d.DriverID, d.Name, d.Active, d.FaceEnrolled())
				}
				return w.Flush()
			})
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "only active drivers")

	deactivate := &cobra.Command{
		Use:   "deactivate <driverId>",
		Short: "Stop a driver from punching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.Drivers.Deactivate(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(create, list, deactivate)
	return cmd
}

func newFormsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "forms", Short: "Inspect and export return forms"}

	var status string
	var limit int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List return forms, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := models.FormFilter{Status: models.FormStatus(status)}
			if status != "" && filter.Status != models.StatusPending && !filter.Status.Decided() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				w := table(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tDRIVER\tITEMS\tSTATUS\tSUBMITTED")
				for _, f := range a.Returns.List(ctx, filter, limit) {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", f.ID.Hex(), f.DriverID, f.TotalItems, f.Status, f.SubmittedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "pending, approved or rejected")
	list.Flags().Int64Var(&limit, "limit", 50, "maximum number of forms")

	var out string
	var upload bool
	exportCmd := &cobra.Command{
		Use:   "export <formId>",
		Short: "Render a return form as PDF to a file or to S3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !upload {
				return errors.New("either --out or --upload is required")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				form, err := a.Returns.Get(ctx, args[0])
				if err != nil {
					return err
				}
				doc, err := export.RenderReturnForm(*form)
				if err != nil {
					return err
				}
				if out != "" {
					if err := os.WriteFile(out, doc, 0o644); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), out)
				}
				if upload {
					return uploadForm(ctx, cmd, a, *form, doc)
				}
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "", "write the PDF to this file")
	exportCmd.Flags().BoolVar(&upload, "upload", false, "upload the PDF to the configured S3 bucket")

	cmd.AddCommand(list, exportCmd)
	return cmd
}
