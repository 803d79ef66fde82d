package main

import (
	"fmt"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/service"

	"github.com/spf13/cobra"
)

func clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage client accounts",
	}
	cmd.AddCommand(clientCreateCmd())
	return cmd
}

func clientCreateCmd() *cobra.Command {
	var req domain.NewClientRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new client",
		Example: `  fuelctl client create --cnpj 12.345.678/0001-90 --company "Transportes ACME" \
    --email frota@acme.com.br --password s3cret!`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			client, err := service.NewSeedService(e.store, e.logger).CreateClient(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created client %s (%s, CNPJ %s)\n", client.ID, client.CompanyName, client.CNPJ)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.CNPJ, "cnpj", "", "company CNPJ, punctuation allowed")
	cmd.Flags().StringVar(&req.CompanyName, "company", "", "company name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login and notification email")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&req.WhatsApp, "whatsapp", "", "WhatsApp number for codes and alerts")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().Float64Var(&req.CreditLimit, "credit-limit", 0, "credit limit in BRL (0 = default)")
	_ = cmd.MarkFlagRequired("cnpj")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo client with vehicles, transactions and an invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			resp, err := service.NewSeedService(e.store, e.logger).Seed(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			if resp.ClientID != "" {
				fmt.Fprintf(out, "  client:       %s (CNPJ %s)\n", resp.ClientID, resp.CNPJ)
				fmt.Fprintf(out, "  vehicles:     %d\n", resp.Vehicles)
				fmt.Fprintf(out, "  transactions: %d\n", resp.Transactions)
				fmt.Fprintf(out, "  invoices:     %d\n", resp.Invoices)
			}
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash stored for a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes the portal relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.store.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexes ensured on %s\n", e.cfg.DBName)
			return nil
		},
	}
}
