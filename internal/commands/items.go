package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"meno/internal/model"
	"meno/internal/planner"
)

type itemsOptions struct {
	Date   string
	Type   string
	ShowID bool
}

func addItems(topLevel *cobra.Command, o *rootOptions) {
	opts := &itemsOptions{}
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Print one day's items.",
		Example: `
meno items
meno items --date 2026-1-5 --type meal
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.Close()

			key := a.planner.TodayKey()
			if opts.Date != "" {
				t, err := planner.ParseDateKey(opts.Date, a.planner.Location())
				if err != nil {
					return fmt.Errorf("bad --date %q: %w", opts.Date, err)
				}
				key = planner.DateKey(t)
			}
			var filter model.Type
			if opts.Type != "" {
				t, ok := model.ParseType(opts.Type)
				if !ok {
					return fmt.Errorf("unknown --type %q; want event, meal or shopping", opts.Type)
				}
				filter = t
			}

			items := planner.FilterByType(a.planner.Items(key), filter)
			printItems(cmd.OutOrStdout(), key, items, opts.ShowID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "Day to show as Y-M-D (default today).")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Only show one type: event, meal or shopping.")
	cmd.Flags().BoolVar(&opts.ShowID, "show-id", false, "Show item ids.")
	topLevel.AddCommand(cmd)
}

func printItems(w io.Writer, key string, items []model.Item, showID bool) {
	title := color.New(color.Bold, color.Underline)
	_, _ = fmt.Fprintln(w, title.Sprint(key))

	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, color.New(color.Faint, color.Italic).Sprint(" none"))
		return
	}

	done := color.New(color.Faint)
	synced := color.New(color.FgHiYellow)

	table := uitable.New()
	table.MaxColWidth = 60
	header := []any{"", "TYPE", "TITLE", "DETAIL", "SOURCE"}
	if showID {
		header = append(header, "ID")
	}
	table.AddRow(header...)
	for _, it := range items {
		mark := "[ ]"
		if it.Completed {
			mark = "[x]"
		}
		t := it.Title
		switch {
		case it.Completed:
			t = done.Sprint(t)
		case it.FromGoogle:
			t = synced.Sprint(t)
		}
		row := []any{mark, it.Type(), t, itemDetail(it), it.Source}
		if showID {
			row = append(row, it.ID)
		}
		table.AddRow(row...)
	}
	_, _ = fmt.Fprintln(w, table)
}

func itemDetail(it model.Item) string {
	switch it.Type() {
	case model.TypeMeal:
		return it.Period()
	case model.TypeShopping:
		if it.Location() != "" && it.Time() != "" {
			return it.Location() + " @ " + it.Time()
		}
		return it.Location() + it.Time()
	default:
		return it.Time()
	}
}
