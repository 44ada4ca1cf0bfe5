// Package main seeds a fresh database with a demo company: two
// branches, a catalog, an admin account and opening stock.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/auth"
	"melowms/internal/domain/catalogs"
	"melowms/internal/domain/inventory"
	"melowms/internal/domain/purchases"
	"melowms/internal/domain/stats"
	"melowms/internal/infrastructure/storage/docstore"
	"melowms/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := docstore.NewPool(ctx, docstore.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := docstore.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	docs := docstore.New(pool)
	if err := seed(ctx, docs, log); err != nil {
		log.Fatalw("seed failed", "error", err)
	}
	log.Info("seed complete")
}

func seed(ctx context.Context, docs store.Store, log *logger.Logger) error {
	catalogService := catalogs.NewService(docs)
	statsService := stats.NewService(docs)
	inventoryService := inventory.NewService(docs)
	purchaseService := purchases.NewService(docs, inventoryService, statsService)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-in-production"
	}
	authService := auth.NewService(docs, auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret)))

	companyID, err := catalogService.CreateCompany(ctx, catalogs.Company{
		Name:    "Melo Distributors Ltd",
		TIN:     "102345678",
		Email:   "info@melo.example",
		Phone:   "+250788000000",
		Address: "KG 11 Ave, Kigali",
	})
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	log.Infow("company created", "company_id", companyID)

	mainBranchID, err := catalogService.Branches.Create(ctx, companyID, catalogs.Branch{
		Name:     "Main Depot",
		Location: "Kigali",
		IsMain:   true,
	})
	if err != nil {
		return fmt.Errorf("create main branch: %w", err)
	}
	if _, err := catalogService.Branches.Create(ctx, companyID, catalogs.Branch{
		Name:     "Musanze Branch",
		Location: "Musanze",
	}); err != nil {
		return fmt.Errorf("create second branch: %w", err)
	}

	supplierID, err := catalogService.Suppliers.Create(ctx, companyID, catalogs.Supplier{
		Name:  "Bralirwa",
		TIN:   "100012345",
		Phone: "+250788111111",
	})
	if err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}

	if _, err := catalogService.Customers.Create(ctx, companyID, catalogs.Customer{
		Name:          "Chez Lando Bar",
		Phone:         "+250788222222",
		FillableGroup: "crate-33cl",
	}); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	type seedItem struct {
		item catalogs.Item
		qty  float64
	}
	items := []seedItem{
		{catalogs.Item{Name: "Primus 72cl", Code: "PRM-72", Unit: "bottle", SalePrice: types.NewMoney(1100), PurchasePrice: types.NewMoney(900), TaxCode: "B", IsFillable: true, FillableGroup: "crate-72cl"}, 480},
		{catalogs.Item{Name: "Mutzig 33cl", Code: "MTZ-33", Unit: "bottle", SalePrice: types.NewMoney(900), PurchasePrice: types.NewMoney(700), TaxCode: "B", IsFillable: true, FillableGroup: "crate-33cl"}, 720},
		{catalogs.Item{Name: "Inyange Water 500ml", Code: "INY-50", Unit: "bottle", SalePrice: types.NewMoney(400), PurchasePrice: types.NewMoney(300), TaxCode: "A"}, 1200},
	}

	lines := make([]purchases.Line, 0, len(items))
	for _, s := range items {
		itemID, err := catalogService.Items.Create(ctx, companyID, s.item)
		if err != nil {
			return fmt.Errorf("create item %s: %w", s.item.Name, err)
		}
		lines = append(lines, purchases.Line{
			Item:      itemID,
			ItemName:  s.item.Name,
			Quantity:  types.NewQuantityFromFloat64(s.qty),
			UnitPrice: s.item.PurchasePrice,
			TaxCode:   s.item.TaxCode,
		})
	}

	// Opening stock enters through a confirmed purchase so inventory,
	// unit costs and stats all line up.
	purchaseID, err := purchaseService.Create(ctx, purchases.CreateInput{
		CompanyID:    companyID,
		BranchID:     mainBranchID,
		SupplierID:   supplierID,
		SupplierName: "Bralirwa",
		Items:        lines,
	})
	if err != nil {
		return fmt.Errorf("create opening purchase: %w", err)
	}
	if err := purchaseService.Confirm(ctx, companyID, mainBranchID, purchaseID); err != nil {
		return fmt.Errorf("confirm opening purchase: %w", err)
	}

	adminEmail := getEnvDefault("SEED_ADMIN_EMAIL", "admin@melo.example")
	adminPassword := getEnvDefault("SEED_ADMIN_PASSWORD", "changeme123")
	userID, err := authService.Register(ctx, auth.RegisterInput{
		Email:     adminEmail,
		Name:      "Administrator",
		Password:  adminPassword,
		CompanyID: companyID,
		BranchID:  mainBranchID,
		Roles:     []string{"manager"},
	})
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}

	log.Infow("demo data ready",
		"company_id", companyID,
		"main_branch_id", mainBranchID,
		"admin_user_id", userID,
		"admin_email", adminEmail,
	)
	return nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
