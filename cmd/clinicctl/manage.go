package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

func medicineCmd() *cobra.Command {
	medicineCmd := &cobra.Command{
		Use:   "medicine",
		Short: "Maintain the medicine list",
	}

	inputFrom := func(cmd *cobra.Command) orders.MedicineInput {
		name, _ := cmd.Flags().GetString("name")
		price, _ := cmd.Flags().GetInt64("price")
		in := orders.MedicineInput{Name: name, Price: price}
		if cmd.Flags().Changed("stock") {
			v, _ := cmd.Flags().GetInt("stock")
			in.Stock = &v
		}
		if cmd.Flags().Changed("threshold") {
			v, _ := cmd.Flags().GetInt("threshold")
			in.LowStockThreshold = &v
		}
		return in
	}
	flags := func(cmd *cobra.Command) {
		cmd.Flags().String("name", "", "medicine name")
		cmd.Flags().Int64("price", 0, "unit price")
		cmd.Flags().Int("stock", 0, "initial stock (add only)")
		cmd.Flags().Int("threshold", 0, "low-stock threshold")
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}
			m, err := c.CreateMedicine(cmd.Context(), inputFrom(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s), stock %d\n", m.Name, m.ID, m.Stock)
			return nil
		},
	}
	flags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change name, price or threshold of a medicine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}
			m, err := c.UpdateMedicine(cmd.Context(), args[0], inputFrom(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s: price %d\n", m.Name, m.Price)
			return nil
		},
	}
	flags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a medicine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}
			return c.DeleteMedicine(cmd.Context(), args[0])
		},
	}

	medicineCmd.AddCommand(addCmd, updateCmd, deleteCmd)
	return medicineCmd
}

func serviceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Maintain the service list",
	}

	addCmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a service with its priced variants",
		Example: `  clinicctl service add --name Ukol --variant single:1:5000 --variant course:10:40000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			raw, _ := cmd.Flags().GetStringArray("variant")
			variants, err := parseVariants(raw)
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}
			s, err := c.CreateService(cmd.Context(), orders.ServiceInput{Name: name, Variants: variants})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) with %d variants\n", s.Name, s.ID, len(s.Variants))
			return nil
		},
	}
	addCmd.Flags().String("name", "", "service name")
	addCmd.Flags().StringArray("variant", nil, "variant as LABEL:COUNT:PRICE (repeatable)")

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a service and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, _, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}
			return c.DeleteService(cmd.Context(), args[0])
		},
	}

	serviceCmd.AddCommand(addCmd, deleteCmd)
	return serviceCmd
}

func parseVariants(args []string) ([]orders.Variant, error) {
	out := make([]orders.Variant, 0, len(args))
	for _, a := range args {
		parts := strings.Split(a, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("--variant: expected LABEL:COUNT:PRICE, got %q", a)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("--variant %q: bad count", a)
		}
		price, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--variant %q: bad price", a)
		}
		out = append(out, orders.Variant{Label: strings.TrimSpace(parts[0]), Count: count, Price: price})
	}
	return out, nil
}
