package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/neighbora/neighbora-api/internal/admins"
	"github.com/neighbora/neighbora-api/internal/auth"
	"github.com/neighbora/neighbora-api/internal/condominiums"
	"github.com/neighbora/neighbora-api/internal/expenses"
	"github.com/neighbora/neighbora-api/internal/money"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/publications"
	"github.com/neighbora/neighbora-api/internal/shared"
)

const seedActor = "seed"

func main() {
	uri := getenv("MONGODB_URI", "mongodb://localhost:27017")
	dbName := getenv("MONGODB_DATABASE", "neighbora")
	adminUID := getenv("SEED_ADMIN_UID", "dev-superadmin")
	ctx := context.Background()

	client, db, err := mongodb.New(ctx, uri, dbName)
	if err != nil {
		log.Fatalf("connect mongodb: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	logger := slog.Default()
	adminRepo := admins.NewRepository(db)
	condoRepo := condominiums.NewRepository(db)
	propertyRepo := properties.NewRepository(db)
	expenseRepo := expenses.NewRepository(db)
	publicationRepo := publications.NewRepository(db)

	fmt.Println("→ Ensuring indexes...")
	for _, ensure := range []func(context.Context) error{
		adminRepo.EnsureIndexes, condoRepo.EnsureIndexes, propertyRepo.EnsureIndexes,
		expenseRepo.EnsureIndexes, publicationRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatalf("ensure indexes: %v", err)
		}
	}

	condoService := condominiums.NewService(condoRepo, nil)
	propertyService := properties.NewService(propertyRepo, condoService)
	condoService.UseResidenceLocator(propertyService)
	expenseService := expenses.NewService(expenseRepo, propertyService, expenses.WithLogger(logger))
	publicationService := publications.NewService(publicationRepo, condoService)

	fmt.Println("→ Seeding admin...")
	_, err = admins.NewService(adminRepo, nil, logger).Create(ctx, seedActor, admins.CreateInput{
		FirebaseUID: adminUID,
		Email:       "admin@neighbora.local",
		Name:        "Seed Admin",
		Role:        string(auth.RoleSuperAdmin),
	})
	if err != nil && !errors.Is(err, shared.ErrConflict) {
		log.Fatalf("seed admin: %v", err)
	}

	fmt.Println("→ Seeding condominium...")
	condo, err := condoService.Create(ctx, seedActor, condominiums.Input{
		Name:       ptr("Edificio Los Aromos"),
		Address:    ptr("Av. Providencia 1234"),
		City:       ptr("Santiago"),
		Region:     ptr("Metropolitana"),
		TotalUnits: ptr(4),
		Contact:    &condominiums.Contact{Email: "administracion@losaromos.local"},
	})
	if err != nil {
		log.Fatalf("seed condominium: %v", err)
	}
	cid := condo.ID.Hex()

	fmt.Println("→ Seeding properties...")
	var units []*properties.Property
	for i := range 4 {
		number := fmt.Sprintf("%d0%d", i/2+1, i%2+1)
		p, err := propertyService.Create(ctx, seedActor, cid, properties.Input{
			Number:       ptr(number),
			Floor:        ptr(i/2 + 1),
			SquareMeters: ptr(62.5),
			Owner: &properties.Owner{
				Name:  "Owner " + number,
				Email: fmt.Sprintf("owner%s@neighbora.local", number),
			},
		})
		if err != nil {
			log.Fatalf("seed property %s: %v", number, err)
		}
		p, err = propertyService.AddResident(ctx, p.ID.Hex(), properties.ResidentInput{
			FirebaseUID:  "dev-resident-" + number,
			Name:         "Resident " + number,
			Email:        fmt.Sprintf("resident%s@neighbora.local", number),
			Relationship: "tenant",
		})
		if err != nil {
			log.Fatalf("seed resident %s: %v", number, err)
		}
		units = append(units, p)
	}

	fmt.Println("→ Seeding common expenses...")
	now := time.Now().UTC()
	period := now.Format("2006-01")
	issue := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i, p := range units {
		e, err := expenseService.Create(ctx, seedActor, expenses.CreateInput{
			CondominiumID: cid,
			PropertyID:    p.ID.Hex(),
			Period:        period,
			Amounts: expenses.Amounts{
				CommonExpense: money.MustParse("85000"),
				ReserveFund:   money.MustParse("8500"),
			},
			IssueDate: issue,
			DueDate:   issue.AddDate(0, 0, 10),
		})
		if err != nil {
			log.Fatalf("seed expense %s: %v", p.Number, err)
		}
		if i%2 == 1 {
			continue
		}
		_, err = expenseService.RecordPayment(ctx, seedActor, e.ID.Hex(), "", expenses.PaymentInput{
			Amount:        money.MustParse("50000"),
			PaymentDate:   issue.AddDate(0, 0, 3),
			PaymentMethod: "transfer",
		})
		if err != nil {
			log.Fatalf("seed payment %s: %v", p.Number, err)
		}
	}

	fmt.Println("→ Seeding publications...")
	author := &auth.Principal{UID: adminUID, Name: "Administración"}
	for _, in := range []publications.CreateInput{
		{CondominiumID: cid, Title: "Corte de agua programado", Content: "El jueves se cortará el agua entre 10:00 y 14:00.", Category: publications.CategoryMaintenance, Priority: publications.PriorityHigh},
		{CondominiumID: cid, Title: "Asamblea de copropietarios", Content: "Los esperamos el sábado en la sala multiuso.", Category: publications.CategoryEvent},
	} {
		if _, err := publicationService.Create(ctx, author, in); err != nil {
			log.Fatalf("seed publication: %v", err)
		}
	}

	fmt.Println("✔ Seed complete:", cid)
}

func ptr[T any](v T) *T { return &v }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
