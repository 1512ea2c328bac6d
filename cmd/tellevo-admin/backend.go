package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			resp, err := client.Health(ctx)
			if err != nil {
				return describeAPIError(err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.Status, resp.Message)
			return err
		},
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard headline figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			o, err := client.DashboardOverview(ctx)
			if err != nil {
				return describeAPIError(err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Usuarios activos:    %d\nViajes completados:  %d\nKms compartidos:     %.1f\nCO2 ahorrado (kg):   %.1f\nPagos realizados:    %d\n",
				o.UsuariosActivos, o.ViajesCompletados, o.KmsCompartidos, o.CO2Ahorrado, o.PagosRealizados)
			return err
		},
	}
}
