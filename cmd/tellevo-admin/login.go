package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/internal/appconfig"
	"github.com/tellevo/tellevo-sdk-go/tellevo/rest"
)

func newLoginCommand(a *app) *cobra.Command {
	var (
		username string
		password string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain an admin JWT",
		Long: `Authenticate against POST /api/login and print the token. With --save the
token is written to the dotenv file as TELLEVO_TOKEN so later commands pick
it up.`,
		Example: `  tellevo-admin login --username admin@tellevoapp.cl
  tellevo-admin login --username admin@tellevoapp.cl --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			client, err := a.restClient()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			resp, err := client.Login(ctx, rest.LoginRequest{Username: username, Password: password})
			if err != nil {
				return describeAPIError(err)
			}

			if save {
				path := a.envFile
				if path == "" {
					path = appconfig.DefaultEnvFile
				}
				if err := saveToken(path, resp.Token); err != nil {
					return err
				}
				a.logger.Info("token saved", "file", path)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (email)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().BoolVar(&save, "save", false, "Write the token to the dotenv file")

	return cmd
}

// saveToken merges TELLEVO_TOKEN into the dotenv file at path.
func saveToken(path, token string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		env = map[string]string{}
	}
	env[appconfig.EnvToken] = token
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
