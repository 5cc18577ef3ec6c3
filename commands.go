package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bakehouse/admin"
	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/settings"
	"bakehouse/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var auditFail bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report drift between the order collections",
	Long: `Scans orders, addresses, payments, shopOrders and deliveryTracking and
prints a JSON report of unresolved references, orphans, missing mirror or
tracking records, duplicate tracking ids and status divergence.

Nothing is repaired.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		store, closeStore, err := openStore(ctx, cfg, logger, useMemory)
		if err != nil {
			return err
		}
		defer closeStore(context.Background())

		svc := orders.NewService(orders.Deps{Store: store, Logger: logger})
		rep, err := admin.NewAuditor(store, svc, logger).Run(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
		if auditFail && !rep.Clean() {
			return fmt.Errorf("audit found %d issues", rep.Issues())
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories, store settings and the starter catalogue",
	Long: `Inserts the bakery categories, the default store settings and the
starter product catalogue. Documents that already exist are left alone, so
the command can be run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		store, closeStore, err := openStore(ctx, cfg, logger, useMemory)
		if err != nil {
			return err
		}
		defer closeStore(context.Background())

		n, err := seed(ctx, store, time.Now().UTC())
		if err != nil {
			return err
		}
		logger.Info("seed finished", zap.Int("inserted", n))
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditFail, "fail", false, "exit non-zero when drift is found")
}

var seedCategories = []models.Category{
	{ID: "cat-bread", Slug: "bread", Name: "Bread", SortOrder: 1, IsActive: true},
	{ID: "cat-pastry", Slug: "pastry", Name: "Pastries", SortOrder: 2, IsActive: true},
	{ID: "cat-cakes", Slug: "cakes", Name: "Cakes", SortOrder: 3, IsActive: true},
	{ID: "cat-cookies", Slug: "cookies", Name: "Cookies", SortOrder: 4, IsActive: true},
}

type seedProduct struct {
	id, name, category, unit, desc string
	price                          float64
	featured                       bool
}

var seedProducts = []seedProduct{
	{"prod-sourdough", "Country Sourdough", "bread", "loaf", "Naturally leavened, 36 hour ferment.", 8.5, true},
	{"prod-baguette", "Baguette", "bread", "each", "Crisp crust, open crumb.", 3.25, false},
	{"prod-rye", "Seeded Rye", "bread", "loaf", "Dense rye with sunflower and flax.", 7, false},
	{"prod-croissant", "Butter Croissant", "pastry", "each", "Laminated with cultured butter.", 3.75, true},
	{"prod-painchoc", "Pain au Chocolat", "pastry", "each", "Two batons of dark chocolate.", 4.25, false},
	{"prod-cinnamon", "Cinnamon Knot", "pastry", "each", "Cardamom dough, cinnamon sugar.", 4, false},
	{"prod-carrot", "Carrot Cake", "cakes", "whole", "Cream cheese frosting, walnuts.", 34, false},
	{"prod-lemon", "Lemon Drizzle", "cakes", "loaf", "Lemon syrup soaked sponge.", 18, true},
	{"prod-cookie", "Brown Butter Cookie", "cookies", "half dozen", "Chewy, with sea salt.", 12, false},
}

// seed inserts the starter data and reports how many documents were new.
func seed(ctx context.Context, store db.Store, now time.Time) (int, error) {
	inserted := 0
	insert := func(coll string, doc any) error {
		err := store.InsertOne(ctx, coll, doc)
		switch {
		case err == nil:
			inserted++
			return nil
		case errors.Is(err, db.ErrDuplicate):
			return nil
		default:
			return fmt.Errorf("seed %s: %w", coll, err)
		}
	}

	for _, c := range seedCategories {
		if err := insert(db.Categories, c); err != nil {
			return inserted, err
		}
	}
	st := settings.Defaults()
	st.UpdatedAt = now
	if err := insert(db.Settings, st); err != nil {
		return inserted, err
	}
	for _, p := range seedProducts {
		doc := models.Product{
			ID:          p.id,
			Name:        p.name,
			Description: p.desc,
			Category:    p.category,
			Price:       utils.RoundMoney(p.price),
			Unit:        p.unit,
			Images:      []string{},
			ShopID:      "bakehouse",
			Featured:    p.featured,
			InStock:     true,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := insert(db.Products, doc); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}
