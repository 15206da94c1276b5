package main

import (
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yakoovad/team-roster/internal/schema"
)

var errInvalidSubmission = errors.New("submission is invalid")

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a form-encoded team submission",
		Long: `Validate a team submission encoded the way the roster page posts it,
for example: coach=Jo&players[0].name=Bo&players[0].goal=1

The data is read from --data, or from stdin when the flag is omitted.
The parsed result is printed as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _ := cmd.Flags().GetString("data")
			if !cmd.Flags().Changed("data") {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				data = string(b)
			}

			values, err := url.ParseQuery(strings.TrimSpace(data))
			if err != nil {
				return errors.Wrap(err, "parse form data")
			}

			v, err := schema.New()
			if err != nil {
				return err
			}

			sub := v.ParseTeam(values)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sub); err != nil {
				return err
			}

			if !sub.OK() {
				return errInvalidSubmission
			}
			return nil
		},
	}

	cmd.Flags().StringP("data", "d", "", "form-encoded submission")

	return cmd
}
