package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/tellevo/rest"
)

func newEmpresasCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "empresas",
		Aliases: []string{"empresa"},
		Short:   "Manage registered companies",
	}

	cmd.AddCommand(newEmpresasListCommand(a))
	cmd.AddCommand(newEmpresasGetCommand(a))
	cmd.AddCommand(newEmpresasCreateCommand(a))
	cmd.AddCommand(newEmpresasDeleteCommand(a))
	cmd.AddCommand(newEmpresasLogoCommand(a))

	return cmd
}

func newEmpresasListCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			empresas, err := client.ListEmpresas(ctx)
			if err != nil {
				return describeAPIError(err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), empresas)
			}
			return writeEmpresaTable(cmd.OutOrStdout(), empresas)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newEmpresasGetCommand(a *app) *cobra.Command {
	var dominio string

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one company by id or --dominio",
		Example: `  tellevo-admin empresas get 12
  tellevo-admin empresas get --dominio @acme.cl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (dominio == "") {
				return errors.New("give either an id or --dominio")
			}
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			var empresa *rest.EmpresaResponse
			if dominio != "" {
				empresa, err = client.GetEmpresaByDominio(ctx, dominio)
			} else {
				id, perr := parseID(args[0])
				if perr != nil {
					return perr
				}
				empresa, err = client.GetEmpresa(ctx, id)
			}
			if err != nil {
				return describeAPIError(err)
			}
			return writeJSON(cmd.OutOrStdout(), empresa)
		},
	}

	cmd.Flags().StringVar(&dominio, "dominio", "", "Email domain, e.g. @acme.cl")
	return cmd
}

func newEmpresasCreateCommand(a *app) *cobra.Command {
	var req rest.EmpresaRequest
	var logoFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a company",
		Example: `  tellevo-admin empresas create --nombre Acme --dominio @acme.cl --logo-url https://cdn.acme.cl/logo.svg
  tellevo-admin empresas create --nombre Acme --dominio @acme.cl --logo-file logo.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (req.LogoURL == "") == (logoFile == "") {
				return errors.New("give exactly one of --logo-url or --logo-file")
			}
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			var created *rest.EmpresaResponse
			if logoFile != "" {
				f, err := os.Open(logoFile)
				if err != nil {
					return fmt.Errorf("open logo: %w", err)
				}
				defer f.Close()
				created, err = client.CreateEmpresaWithUpload(ctx, rest.EmpresaUpload{
					Nombre:  req.Nombre,
					Dominio: req.Dominio,
					Logo:    rest.Logo{Filename: filepath.Base(logoFile), Content: f},
				})
				if err != nil {
					return describeAPIError(err)
				}
			} else {
				created, err = client.CreateEmpresa(ctx, req)
				if err != nil {
					return describeAPIError(err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), created)
		},
	}

	cmd.Flags().StringVar(&req.Nombre, "nombre", "", "Company name")
	cmd.Flags().StringVar(&req.Dominio, "dominio", "", "Email domain, e.g. @acme.cl")
	cmd.Flags().StringVar(&req.LogoURL, "logo-url", "", "URL of an .svg logo")
	cmd.Flags().StringVar(&logoFile, "logo-file", "", "Logo file to upload")
	_ = cmd.MarkFlagRequired("nombre")
	_ = cmd.MarkFlagRequired("dominio")
	return cmd
}

func newEmpresasDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			resp, err := client.DeleteEmpresa(ctx, id)
			if err != nil {
				return describeAPIError(err)
			}
			msg := resp.Message
			if msg == "" {
				msg = fmt.Sprintf("empresa %d deleted", id)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}

func newEmpresasLogoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logo <id> <file>",
		Short: "Upload a new logo for a company",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open logo: %w", err)
			}
			defer f.Close()
			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			resp, err := client.UploadLogo(ctx, id, rest.Logo{Filename: filepath.Base(args[1]), Content: f})
			if err != nil {
				return describeAPIError(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.LogoURL)
			return err
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid empresa id %q", s)
	}
	return id, nil
}

func writeEmpresaTable(w io.Writer, empresas []rest.EmpresaResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tDOMINIO\tPAIS\tLOGO")
	for _, e := range empresas {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Nombre, e.Dominio, e.CodigoPais, e.LogoURL)
	}
	return tw.Flush()
}
