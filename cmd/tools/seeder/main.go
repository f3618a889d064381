package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

type seedItem struct {
	Kind        catalog.Kind
	Name        string
	Category    string
	Description string
	Image       string
	Price       pricing.Money
	Tiers       []pricing.Tier
	Contents    []string
	Featured    bool
}

// weightTiers prices a sweet per 250gm, 500gm and 1kg from its per-kg rate.
func weightTiers(perKg pricing.Money) []pricing.Tier {
	return []pricing.Tier{
		{Quantity: 250, Unit: pricing.UnitGram, Price: perKg / 4},
		{Quantity: 500, Unit: pricing.UnitGram, Price: perKg / 2},
		{Quantity: 1, Unit: pricing.UnitKilo, Price: perKg},
	}
}

var items = []seedItem{
	{Kind: catalog.KindProduct, Name: "Motichoor Laddu", Category: "laddu", Description: "Fine boondi laddu in pure ghee.", Image: "/images/motichoor-laddu.jpg", Tiers: weightTiers(64000), Featured: true},
	{Kind: catalog.KindProduct, Name: "Kaju Katli", Category: "barfi", Description: "Cashew fudge with silver varq.", Image: "/images/kaju-katli.jpg", Tiers: weightTiers(120000), Featured: true},
	{Kind: catalog.KindProduct, Name: "Besan Laddu", Category: "laddu", Description: "Roasted gram flour laddu.", Image: "/images/besan-laddu.jpg", Tiers: weightTiers(56000)},
	{Kind: catalog.KindProduct, Name: "Milk Cake", Category: "barfi", Description: "Slow-cooked caramelised milk cake.", Image: "/images/milk-cake.jpg", Tiers: weightTiers(72000)},
	{Kind: catalog.KindProduct, Name: "Rasgulla", Category: "bengali", Description: "Spongy chhena balls in syrup.", Image: "/images/rasgulla.jpg", Tiers: []pricing.Tier{
		{Quantity: 6, Unit: pricing.UnitPiece, Price: 18000},
		{Quantity: 1, Unit: pricing.UnitDozen, Price: 34000},
	}},
	{Kind: catalog.KindNamkeen, Name: "Aloo Bhujia", Category: "bhujia", Description: "Spiced potato sev.", Image: "/images/aloo-bhujia.jpg", Tiers: weightTiers(36000), Featured: true},
	{Kind: catalog.KindNamkeen, Name: "Navratan Mixture", Category: "mixture", Description: "Nine-ingredient festive mix.", Image: "/images/navratan.jpg", Tiers: weightTiers(40000)},
	{Kind: catalog.KindNamkeen, Name: "Mathri", Category: "baked", Description: "Flaky carom seed crackers.", Image: "/images/mathri.jpg", Tiers: weightTiers(32000)},
	{Kind: catalog.KindBox, Name: "Diwali Celebration Box", Category: "festive", Description: "Assorted sweets for the festival.", Image: "/images/diwali-box.jpg", Price: 149900, Contents: []string{"Kaju Katli 250gm", "Motichoor Laddu 250gm", "Milk Cake 250gm"}, Featured: true},
	{Kind: catalog.KindBox, Name: "Namkeen Hamper", Category: "hamper", Description: "Three savoury favourites.", Image: "/images/namkeen-hamper.jpg", Price: 79900, Contents: []string{"Aloo Bhujia 250gm", "Navratan Mixture 250gm", "Mathri 250gm"}},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "print the items without writing")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if *dryRun {
		for _, it := range items {
			log.Printf("%-8s %-26s %s", it.Kind, it.Name, catalog.Slugify(it.Name))
		}
		return
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seeded := 0
	for _, it := range items {
		if err := upsertItem(db, it); err != nil {
			log.Printf("Failed to seed %s: %v", it.Name, err)
			continue
		}
		seeded++
	}
	log.Printf("Seeded %d of %d catalog items", seeded, len(items))
}

func upsertItem(db *sql.DB, it seedItem) error {
	if it.Kind.Tiered() {
		if err := pricing.ValidateTiers(it.Tiers); err != nil {
			return err
		}
	}
	tiers := it.Tiers
	if tiers == nil {
		tiers = []pricing.Tier{}
	}
	tiersJSON, err := json.Marshal(tiers)
	if err != nil {
		return err
	}
	contents := it.Contents
	if contents == nil {
		contents = []string{}
	}
	_, err = db.Exec(`
		INSERT INTO catalog_items (id, kind, name, slug, description, category, images, price, tiers, contents, is_active, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
		ON CONFLICT (slug) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			images = EXCLUDED.images,
			price = EXCLUDED.price,
			tiers = EXCLUDED.tiers,
			contents = EXCLUDED.contents,
			is_featured = EXCLUDED.is_featured,
			updated_at = now();
	`, uuid.NewString(), string(it.Kind), it.Name, catalog.Slugify(it.Name), it.Description, it.Category,
		pq.Array([]string{it.Image}), it.Price, string(tiersJSON), pq.Array(contents), it.Featured)
	return err
}
