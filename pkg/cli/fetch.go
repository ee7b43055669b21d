package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/cli/config"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/infra/webdav"
	"github.com/m-mizutani/sheetshim/pkg/infra/xlsx"
	"github.com/m-mizutani/sheetshim/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdFetch() *cli.Command {
	var (
		nextcloudCfg config.Nextcloud
		credential   config.Credential
		fileID       int64
		output       string
	)

	flags := append(nextcloudCfg.Flags(), credential.Flags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "file-id",
			Aliases:     []string{"f"},
			Usage:       "Nextcloud file id of the spreadsheet",
			Required:    true,
			Destination: &fileID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the serialized workbook to this path instead of stdout",
			Destination: &output,
		},
	)

	return &cli.Command{
		Name:    "fetch",
		Aliases: []string{"f"},
		Usage:   "Convert one spreadsheet with basic auth and print the result",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := nextcloudCfg.Load(); err != nil {
				return err
			}
			session, err := credential.Session()
			if err != nil {
				return err
			}

			storage, err := webdav.NewClient(nextcloudCfg.URL, webdav.WithTimeout(nextcloudCfg.Timeout))
			if err != nil {
				return goerr.Wrap(err, "failed to create storage client")
			}

			data, err := usecase.NewWorkbook(storage, xlsx.NewDecoder()).Render(ctx, session, fileID)
			if err != nil {
				return goerr.Wrap(err, "failed to fetch workbook", goerr.V("file_id", fileID))
			}

			if output == "" {
				if _, err := os.Stdout.Write(data); err != nil {
					return goerr.Wrap(err, "failed to write workbook")
				}
			} else if err := os.WriteFile(output, data, 0o644); err != nil {
				return goerr.Wrap(err, "failed to write workbook", goerr.V("path", output))
			}

			return printSummary(os.Stderr, data, output)
		},
	}
}

// printSummary describes the converted workbook on w
func printSummary(w io.Writer, data []byte, output string) error {
	var wb model.Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return goerr.Wrap(err, "failed to read converted workbook")
	}

	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	title.Fprintf(w, "✔ %s\n", wb.Name)
	for _, sheet := range wb.Sheets {
		label.Fprintf(w, "  %s", sheet.Name)
		fmt.Fprintf(w, "  %d cells", len(sheet.Cells))
		if sheet.Dimension != "" {
			fmt.Fprintf(w, " (%s)", sheet.Dimension)
		}
		fmt.Fprintln(w)
	}
	if output != "" {
		label.Fprint(w, "  written to ")
		fmt.Fprintln(w, output)
	}

	return nil
}
