package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"estateoracle/internal/bootstrap"
	"estateoracle/internal/errs"
	propertyuc "estateoracle/internal/usecase/property"
)

var propertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Real-estate token property commands",
}

var propertyShowCmd = &cobra.Command{
	Use:   "show <property-id>",
	Short: "Show property metadata from the token contract",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		property, err := app.Property.GetProperty(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"property=%s name=%q location=%q price_per_share=%s total_shares=%s valuation=%s active=%t\ndescription=%q\n",
			property.ID,
			property.Name,
			property.Location,
			property.PricePerShare,
			property.TotalShares,
			property.Valuation,
			property.IsActive,
			property.Description,
		); err != nil {
			return errs.Wrap(err, "write property output")
		}
		return nil
	}),
}

var propertyFinancialsCmd = &cobra.Command{
	Use:   "financials <property-id>",
	Short: "Show rental income accounting of one property",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		financials, err := app.Property.GetFinancials(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"income_per_share=%s last_rental_update=%s active=%t\n",
			financials.AccumulatedRentalIncomePerShare,
			formatTime(financials.LastRentalUpdate),
			financials.IsActive,
		); err != nil {
			return errs.Wrap(err, "write financials output")
		}
		return nil
	}),
}

var propertyUpdateCmd = &cobra.Command{
	Use:   "update <property-id>",
	Short: "Replace the metadata of one property",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		name, _ := cmd.Flags().GetString("name")
		location, _ := cmd.Flags().GetString("location")
		description, _ := cmd.Flags().GetString("description")
		price, _ := cmd.Flags().GetString("price-per-share")
		active, _ := cmd.Flags().GetBool("active")

		txHash, err := app.Property.UpdateProperty(cmd.Context(), propertyuc.UpdatePropertyInput{
			ID:            cmd.Flags().Arg(0),
			Name:          name,
			Location:      location,
			Description:   description,
			PricePerShare: price,
			IsActive:      active,
		})
		if err != nil {
			return err
		}
		return writeTx(cmd, "property updated", txHash)
	}),
}

var propertySetValuationCmd = &cobra.Command{
	Use:   "set-valuation <property-id> <valuation>",
	Short: "Write a valuation directly to the token contract",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		txHash, err := app.Property.UpdateValuation(cmd.Context(), cmd.Flags().Arg(0), cmd.Flags().Arg(1))
		if err != nil {
			return err
		}
		return writeTx(cmd, "valuation updated", txHash)
	}),
}

var propertySetRentalIncomeCmd = &cobra.Command{
	Use:   "set-rental-income <property-id> <amount>",
	Short: "Distribute rental income to the shareholders of one property",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		txHash, err := app.Property.UpdateRentalIncome(cmd.Context(), cmd.Flags().Arg(0), cmd.Flags().Arg(1))
		if err != nil {
			return err
		}
		return writeTx(cmd, "rental income updated", txHash)
	}),
}

func init() {
	rootCmd.AddCommand(propertyCmd)
	propertyCmd.AddCommand(
		propertyShowCmd,
		propertyFinancialsCmd,
		propertyUpdateCmd,
		propertySetValuationCmd,
		propertySetRentalIncomeCmd,
	)

	propertyUpdateCmd.Flags().String("name", "", "Property name")
	propertyUpdateCmd.Flags().String("location", "", "Property location")
	propertyUpdateCmd.Flags().String("description", "", "Property description")
	propertyUpdateCmd.Flags().String("price-per-share", "", "Price per share in whole units, e.g. 0.05")
	propertyUpdateCmd.Flags().Bool("active", true, "Whether the property is open for trading")
}
