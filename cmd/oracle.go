package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"estateoracle/internal/bootstrap"
	"estateoracle/internal/errs"
	oracleuc "estateoracle/internal/usecase/oracle"
)

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Valuation oracle commands",
}

var oracleStatusCmd = &cobra.Command{
	Use:   "status <property-id>",
	Short: "Show the oracle status of one property from the local event log",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		output, err := outputFlag(cmd)
		if err != nil {
			return err
		}
		now := time.Now()
		view, err := app.Oracle.Status(cmd.Context(), cmd.Flags().Arg(0), now)
		if err != nil {
			return err
		}
		if output != outputText {
			return writeStructured(cmd.OutOrStdout(), output, statusDoc(view))
		}
		if _, err := fmt.Fprint(cmd.OutOrStdout(), formatStatus(view, now)); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

var oracleRequestCmd = &cobra.Command{
	Use:   "request <property-id>",
	Short: "Dispatch a valuation request for one property",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		location, _ := cmd.Flags().GetString("location")
		description, _ := cmd.Flags().GetString("description")
		size, _ := cmd.Flags().GetString("size")
		force, _ := cmd.Flags().GetBool("force")

		result, err := app.Oracle.RequestUpdate(cmd.Context(), oracleuc.RequestUpdateInput{
			EntityID:    cmd.Flags().Arg(0),
			Location:    location,
			Description: description,
			Size:        size,
			Trigger:     oracleuc.TriggerManual,
			Force:       force,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"valuation requested dispatch=%s tx=%s request=%s\n",
			result.DispatchID,
			orDash(result.TxHash),
			orDash(result.RequestID),
		); err != nil {
			return errs.Wrap(err, "write request output")
		}
		return nil
	}),
}

var oracleEventsCmd = &cobra.Command{
	Use:   "events [property-id]",
	Short: "List stored oracle events, most recent first",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		limit, _ := cmd.Flags().GetInt("limit")
		output, err := outputFlag(cmd)
		if err != nil {
			return err
		}

		events, err := app.Oracle.ListEvents(cmd.Context(), cmd.Flags().Arg(0), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if output != outputText {
			docs := make([]eventDocument, 0, len(events))
			for _, event := range events {
				docs = append(docs, eventDoc(event))
			}
			return writeStructured(out, output, docs)
		}
		for _, event := range events {
			if _, err := fmt.Fprintln(out, formatEvent(event)); err != nil {
				return errs.Wrap(err, "write events output")
			}
		}
		return nil
	}),
}

var oracleStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the latest request, response and error held by the oracle contract",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		state, err := app.Oracle.OracleState(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"last_request=%s response=%s error=%s subscription=%s gas_limit=%s\n",
			orDash(state.LastRequestID),
			orDash(state.LastResponse),
			orDash(state.LastError),
			orDash(state.SubscriptionID),
			orDash(state.GasLimit),
		); err != nil {
			return errs.Wrap(err, "write state output")
		}
		return nil
	}),
}

var oracleConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the oracle contract configuration",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		cfg, err := app.Oracle.OracleConfig(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"subscription=%s gas_limit=%s don=%s token=%s\n",
			orDash(cfg.SubscriptionID),
			orDash(cfg.GasLimit),
			orDash(cfg.DonID),
			orDash(cfg.RealEstateToken),
		); err != nil {
			return errs.Wrap(err, "write config output")
		}
		return nil
	}),
}

var oracleSetSubscriptionCmd = &cobra.Command{
	Use:   "set-subscription <subscription-id>",
	Short: "Point the oracle contract at another functions subscription",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		id, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 64)
		if err != nil {
			return errs.Wrapf(err, "parse subscription id %q", cmd.Flags().Arg(0))
		}
		txHash, err := app.Oracle.UpdateSubscriptionID(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeTx(cmd, "subscription updated", txHash)
	}),
}

var oracleSetGasLimitCmd = &cobra.Command{
	Use:   "set-gas-limit <gas-limit>",
	Short: "Change the callback gas limit of the oracle contract",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		limit, err := strconv.ParseUint(cmd.Flags().Arg(0), 10, 32)
		if err != nil {
			return errs.Wrapf(err, "parse gas limit %q", cmd.Flags().Arg(0))
		}
		txHash, err := app.Oracle.UpdateGasLimit(cmd.Context(), uint32(limit))
		if err != nil {
			return err
		}
		return writeTx(cmd, "gas limit updated", txHash)
	}),
}

func outputFlag(cmd *cobra.Command) (string, error) {
	raw, _ := cmd.Flags().GetString("output")
	return parseOutput(raw)
}

func writeTx(cmd *cobra.Command, msg string, txHash string) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s tx=%s\n", msg, orDash(txHash)); err != nil {
		return errs.Wrap(err, "write command output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(oracleCmd)
	oracleCmd.AddCommand(
		oracleStatusCmd,
		oracleRequestCmd,
		oracleEventsCmd,
		oracleStateCmd,
		oracleConfigCmd,
		oracleSetSubscriptionCmd,
		oracleSetGasLimitCmd,
	)

	oracleRequestCmd.Flags().String("location", "", "Property location; read from the token contract when empty")
	oracleRequestCmd.Flags().String("description", "", "Property description used to derive the size hint")
	oracleRequestCmd.Flags().String("size", "", "Size argument sent with the request")
	oracleRequestCmd.Flags().Bool("force", false, "Dispatch even while a local in-flight marker is active")

	oracleEventsCmd.Flags().Int("limit", 50, "Max events listed")
	for _, outCmd := range []*cobra.Command{oracleStatusCmd, oracleEventsCmd} {
		outCmd.Flags().StringP("output", "o", outputText, "Output format: text, yaml or json")
	}
}
