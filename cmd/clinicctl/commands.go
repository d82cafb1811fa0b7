package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/clinic-orders/internal/auth"
	"github.com/ariefcatur/clinic-orders/internal/catalog"
	"github.com/ariefcatur/clinic-orders/internal/clinicapi"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/postgres"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			pool, err := postgres.Connect(cmd.Context(), postgres.PoolConfig{
				DSN: e.cfg.PostgresDSN, MaxConns: 2, MinConns: 1,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.Migrate(cmd.Context(), pool, postgres.Migrations())
			if err != nil {
				return err
			}
			e.log.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account directly in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			password, _ := cmd.Flags().GetString("password")
			if !session.Role(role).Valid() {
				return fmt.Errorf("unknown role %q (nurse, delivery, manager)", role)
			}
			if email == "" || name == "" {
				return errors.New("--email and --name are required")
			}
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			pool, err := postgres.Connect(cmd.Context(), postgres.PoolConfig{
				DSN: e.cfg.PostgresDSN, MaxConns: 2, MinConns: 1,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			u, err := (&orders.UserRepo{DB: pool}).Create(cmd.Context(), orders.User{
				Name: name, Email: email, Role: role, PasswordHash: hash,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	addCmd.Flags().String("email", "", "login email")
	addCmd.Flags().String("name", "", "display name")
	addCmd.Flags().String("role", string(session.RoleNurse), "nurse, delivery or manager")
	addCmd.Flags().String("password", "", "password (read from stdin when empty)")

	userCmd.AddCommand(addCmd)
	return userCmd
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			s, err := clinicapi.New(e.apiURL).Login(cmd.Context(), email, password)
			if errors.Is(err, clinicapi.ErrUnauthorized) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return err
			}
			if err := s.Save(e.sessionPath); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s) until %s\n",
				s.User.Name, s.Role, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().String("email", "", "login email")
	cmd.Flags().String("password", "", "password (read from stdin when empty)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			return session.Clear(e.sessionPath)
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			_, s, err := e.authorized()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s, expires %s\n",
				s.User.Name, s.User.Email, s.Role, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List medicines and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized()
			if err != nil {
				return err
			}
			snap, err := catalog.Fetch(cmd.Context(), c)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func printCatalog(out io.Writer, snap *catalog.Snapshot) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEDICINE\tID\tPRICE\tSTOCK\tSTATUS")
	for _, m := range snap.Medicines() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", m.Name, m.ID, m.UnitPrice, m.Stock, orders.StockStatusOf(m.Stock, m.LowStockThreshold))
	}
	fmt.Fprintln(tw, "\nSERVICE\tID\tVARIANT\tPRICE\t")
	for _, s := range snap.Services() {
		for _, v := range s.Variants {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", s.Name, s.ID, v.Label, v.Price)
		}
	}
	tw.Flush()
}

func restockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restock ID=QTY...",
		Short: "Record a delivery of medicines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseRestock(args)
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleDelivery)
			if err != nil {
				return err
			}
			levels, err := c.Restock(cmd.Context(), items)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MEDICINE\tSTOCK\tSTATUS")
			for _, lv := range levels {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", lv.Name, lv.Stock, orders.StockStatusOf(lv.Stock, lv.LowStockThreshold))
			}
			return tw.Flush()
		},
	}
	return cmd
}

func stockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "List medicine stock, lowest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleDelivery)
			if err != nil {
				return err
			}
			ms, err := c.MedicinesForDelivery(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MEDICINE\tID\tSTOCK\tSTATUS")
			for _, m := range ms {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.Name, m.ID, m.Stock, orders.StockStatusOf(m.Stock, m.LowStockThreshold))
			}
			return tw.Flush()
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show usage totals per medicine and service",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleManager)
			if err != nil {
				return err
			}
			s, err := c.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total quantity: %d\ntotal sum: %d\nmost used: %s\nitem types: %d\n\n",
				s.Cards.TotalQty, s.Cards.TotalSum, s.Cards.MostUsed, s.Cards.Types)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tQTY\tSUM")
			for _, row := range s.Table {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", row.Name, row.Qty, row.Sum)
			}
			return tw.Flush()
		},
	}
}

func receiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt ORDER_ID",
		Short: "Print the receipt of a committed administration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			a, err := clinicapi.New(e.apiURL).Receipt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), a.ID, a.PatientName, toReceiptLines(a.Items), a.Total)
			return nil
		},
	}
}

type receiptLine struct {
	Name     string
	Quantity int
	Price    int64
}

func toReceiptLines(items []orders.AdministrationLine) []receiptLine {
	out := make([]receiptLine, 0, len(items))
	for _, it := range items {
		name := it.Name
		if it.Variant != "" && !strings.Contains(name, it.Variant) {
			name = fmt.Sprintf("%s (%s)", name, it.Variant)
		}
		out = append(out, receiptLine{Name: name, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}

func printReceipt(out io.Writer, orderID, patient string, lines []receiptLine, total int64) {
	fmt.Fprintf(out, "order %s\npatient: %s\n\n", orderID, patient)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", l.Name, l.Quantity, l.Price, l.Price*int64(l.Quantity))
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%d\n", total)
	tw.Flush()
}
