package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/clinic-orders/internal/composer"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

type medicinePick struct {
	ID       string
	Quantity string
}

type servicePick struct {
	ID      string
	Variant string
}

func administerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "administer",
		Short: "Compose an administration for a patient and submit it",
		Example: `  clinicctl administer --patient "aliyeva nodira" \
    --medicine 8f1c...=2 --service 3a9e...=single`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			medArgs, _ := cmd.Flags().GetStringArray("medicine")
			svcArgs, _ := cmd.Flags().GetStringArray("service")
			meds, err := parseMedicines(medArgs)
			if err != nil {
				return err
			}
			svcs, err := parseServices(svcArgs)
			if err != nil {
				return err
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, s, err := e.authorized(session.RoleNurse)
			if err != nil {
				return err
			}

			cmp, err := composer.New(cmd.Context(), c, c,
				composer.WithSubmitTimeout(e.cfg.SubmitTimeout),
				composer.WithLogger(e.log.With().Str("nurse", s.User.ID).Logger()))
			if err != nil {
				return err
			}
			if err := compose(cmp, patient, meds, svcs, cmd.ErrOrStderr()); err != nil {
				return err
			}

			r, err := cmp.Submit(cmd.Context())
			if err != nil {
				return explainSubmit(err)
			}
			lines := make([]receiptLine, 0, len(r.Lines))
			for _, l := range r.Lines {
				lines = append(lines, receiptLine{Name: l.Name, Quantity: l.Quantity, Price: l.UnitPrice})
			}
			printReceipt(cmd.OutOrStdout(), r.OrderID, r.PatientName, lines, r.Total)
			return nil
		},
	}
	cmd.Flags().String("patient", "", "patient full name")
	cmd.Flags().StringArray("medicine", nil, "medicine as ID=QTY (repeatable)")
	cmd.Flags().StringArray("service", nil, "service as ID=VARIANT (repeatable)")
	return cmd
}

// compose applies the picks to cmp in order. A quantity clamped to the stock
// bound is reported on warn; everything else that rejects a pick is an error.
func compose(cmp *composer.Composer, patient string, meds []medicinePick, svcs []servicePick, warn io.Writer) error {
	if err := cmp.SetPatientName(patient); err != nil {
		return err
	}
	for _, m := range meds {
		if err := cmp.ToggleMedicine(m.ID); err != nil {
			return err
		}
		err := cmp.SetMedicineQuantityText(m.ID, m.Quantity)
		var rej *composer.SelectionRejected
		if errors.As(err, &rej) && rej.Reason == composer.ReasonStockBound {
			fmt.Fprintf(warn, "warning: %s limited to %d (stock)\n", m.ID, rej.Bound)
			continue
		}
		if err != nil {
			return err
		}
	}
	for _, s := range svcs {
		if err := cmp.SelectServiceVariant(s.ID, s.Variant); err != nil {
			return err
		}
	}
	return nil
}

func explainSubmit(err error) error {
	var conflict *composer.SubmissionConflict
	if errors.As(err, &conflict) {
		var b strings.Builder
		b.WriteString("rejected: ")
		b.WriteString(conflict.Reason)
		for _, sh := range conflict.Shortages {
			fmt.Fprintf(&b, "\n  %s: need %d, %d left", sh.ItemID, sh.Required, sh.Available)
		}
		return errors.New(b.String())
	}
	if errors.Is(err, composer.ErrTransport) {
		return fmt.Errorf("%w; nothing was recorded, retry the same command", err)
	}
	return err
}

func splitPair(arg string) (string, string, error) {
	k, v, ok := strings.Cut(arg, "=")
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if !ok || k == "" || v == "" {
		return "", "", fmt.Errorf("expected KEY=VALUE, got %q", arg)
	}
	return k, v, nil
}

// parseMedicines keeps the last quantity given for a repeated id. Quantities
// are passed through as text so the composer decides what is valid.
func parseMedicines(args []string) ([]medicinePick, error) {
	var out []medicinePick
	seen := map[string]int{}
	for _, a := range args {
		id, qty, err := splitPair(a)
		if err != nil {
			return nil, fmt.Errorf("--medicine: %w", err)
		}
		if i, ok := seen[id]; ok {
			out[i].Quantity = qty
			continue
		}
		seen[id] = len(out)
		out = append(out, medicinePick{ID: id, Quantity: qty})
	}
	return out, nil
}

func parseServices(args []string) ([]servicePick, error) {
	out := make([]servicePick, 0, len(args))
	for _, a := range args {
		id, variant, err := splitPair(a)
		if err != nil {
			return nil, fmt.Errorf("--service: %w", err)
		}
		out = append(out, servicePick{ID: id, Variant: variant})
	}
	return out, nil
}

// parseRestock sums repeated ids.
func parseRestock(args []string) ([]orders.RestockItem, error) {
	var out []orders.RestockItem
	seen := map[string]int{}
	for _, a := range args {
		id, raw, err := splitPair(a)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s: quantity must be a positive number", id)
		}
		if i, ok := seen[id]; ok {
			out[i].Quantity += n
			continue
		}
		seen[id] = len(out)
		out = append(out, orders.RestockItem{MedicineID: id, Quantity: n})
	}
	return out, nil
}
