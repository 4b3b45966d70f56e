package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"driver-punch-api-server/internal/app"
	"driver-punch-api-server/internal/export"
	"driver-punch-api-server/internal/models"
)

func uploadForm(ctx context.Context, cmd *cobra.Command, a *app.App, form models.ReturnForm, doc []byte) error {
	if a.Uploader == nil {
		return errors.New("s3 is not configured")
	}
	url, err := a.Uploader.Upload(ctx, bytes.NewReader(doc), export.ObjectKey(form), export.ContentType)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
