package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

const kajuTiers = `[{"quantity":250,"unit":"gm","price":30000},{"quantity":1,"unit":"kg","price":110000}]`

func newService(t *testing.T, q *fakeCatalogQueries, cache *catalog.Cache) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: q, Cache: cache, DefaultLimit: 20, MaxLimit: 50})
	require.NoError(t, err)
	return svc
}

func TestResolveAcrossKinds(t *testing.T) {
	q := newFakeCatalogQueries(t)
	kaju := q.seed("product", "Kaju Katli", "kaju-katli", 0, kajuTiers, true)
	bhujia := q.seed("namkeen", "Bikaneri Bhujia", "bikaneri-bhujia", 0, `[{"quantity":500,"unit":"gm","price":18000}]`, true)
	box := q.seed("box", "Bhaji Box", "bhaji-box", 49900, `[]`, true)
	svc := newService(t, q, nil)
	ctx := context.Background()

	for id, kind := range map[string]catalog.Kind{kaju: catalog.KindProduct, bhujia: catalog.KindNamkeen, box: catalog.KindBox} {
		item, err := svc.Resolve(ctx, id)
		require.NoError(t, err)
		require.Equal(t, kind, item.Kind)
	}
	require.Equal(t, 3, q.gets, "one lookup per id")

	item, err := svc.Resolve(ctx, kaju)
	require.NoError(t, err)
	price, tier, err := item.PriceFor(&pricing.TierRef{Quantity: 1, Unit: pricing.UnitKilo})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(110000), price)
	require.NotNil(t, tier)
}

func TestResolveUnknownAndInactiveAreNotFound(t *testing.T) {
	q := newFakeCatalogQueries(t)
	hidden := q.seed("product", "Seasonal Ghevar", "ghevar", 45000, `[]`, false)
	svc := newService(t, q, nil)

	for _, id := range []string{hidden, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", "not-a-uuid"} {
		_, err := svc.Resolve(context.Background(), id)
		require.Error(t, err)
		require.True(t, errors.Is(err, catalog.ErrNotFound))
		var appErr *common.AppError
		require.True(t, errors.As(err, &appErr))
		require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	}
}

func TestResolveMany(t *testing.T) {
	q := newFakeCatalogQueries(t)
	a := q.seed("product", "Rasgulla", "rasgulla", 0, `[{"quantity":1,"unit":"kg","price":32000}]`, true)
	b := q.seed("box", "Festive Box", "festive-box", 99900, `[]`, true)
	svc := newService(t, q, nil)

	items, err := svc.ResolveMany(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Festive Box", items[b].Name)

	_, err = svc.ResolveMany(context.Background(), []string{a, "1b4e28ba-2fa1-11d2-883f-0016d3cca427"})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestGetCachesDetailAndAdminWritesInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := newFakeCatalogQueries(t)
	id := q.seed("product", "Soan Papdi", "soan-papdi", 0, `[{"quantity":500,"unit":"gm","price":15000}]`, true)
	svc := newService(t, q, catalog.NewCache(rdb, time.Minute))
	ctx := context.Background()

	_, err := svc.Get(ctx, "soan-papdi")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "soan-papdi")
	require.NoError(t, err)
	require.Equal(t, 1, q.gets)
	require.True(t, mr.Exists("catalog:v0:detail:soan-papdi"))

	_, err = svc.Update(ctx, id, catalog.ItemInput{
		Kind:  catalog.KindProduct,
		Name:  "Soan Papdi",
		Slug:  "soan-papdi",
		Tiers: []pricing.Tier{{Quantity: 500, Unit: pricing.UnitGram, Price: 16000}},
	})
	require.NoError(t, err)
	gen, err := mr.Get("catalog:gen")
	require.NoError(t, err)
	require.Equal(t, "1", gen)

	item, err := svc.Get(ctx, "soan-papdi")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(16000), item.Tiers[0].Price)
	require.Equal(t, 2, q.gets)
	require.True(t, mr.Exists("catalog:v1:detail:soan-papdi"))
}

func TestListFiltersByKind(t *testing.T) {
	q := newFakeCatalogQueries(t)
	q.seed("product", "Barfi", "barfi", 0, kajuTiers, true)
	q.seed("namkeen", "Mixture", "mixture", 0, `[{"quantity":250,"unit":"gm","price":9000}]`, true)
	q.seed("namkeen", "Old Mixture", "old-mixture", 0, `[{"quantity":250,"unit":"gm","price":9000}]`, false)
	svc := newService(t, q, nil)

	res, err := svc.List(context.Background(), catalog.ListParams{Kind: catalog.KindNamkeen})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, "Mixture", res.Items[0].Name)

	res, err = svc.List(context.Background(), catalog.ListParams{Kind: catalog.KindNamkeen, IncludeInactive: true})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
}

func TestCreateValidation(t *testing.T) {
	q := newFakeCatalogQueries(t)
	svc := newService(t, q, nil)
	ctx := context.Background()

	cases := map[string]catalog.ItemInput{
		"missing name":      {Kind: catalog.KindProduct, Price: 100},
		"unknown kind":      {Kind: "hamper", Name: "Hamper", Price: 100},
		"box with tiers":    {Kind: catalog.KindBox, Name: "Box", Price: 100, Tiers: []pricing.Tier{{Quantity: 1, Unit: pricing.UnitPiece, Price: 10}}},
		"box without price": {Kind: catalog.KindBox, Name: "Box"},
		"no price":          {Kind: catalog.KindNamkeen, Name: "Sev"},
		"bad tier":          {Kind: catalog.KindProduct, Name: "Peda", Tiers: []pricing.Tier{{Quantity: 1, Unit: "tola", Price: 10}}},
		"product contents":  {Kind: catalog.KindProduct, Name: "Peda", Price: 100, Contents: []string{"x"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			require.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}

	created, err := svc.Create(ctx, catalog.ItemInput{Kind: catalog.KindBox, Name: "Diwali Bhaji Box", Price: 129900, Contents: []string{"Kaju Katli 250gm", "Bhujia 200gm"}})
	require.NoError(t, err)
	require.Equal(t, "diwali-bhaji-box", created.Slug)
	require.True(t, created.IsActive)

	_, err = svc.Create(ctx, catalog.ItemInput{Kind: catalog.KindBox, Name: "Diwali Bhaji Box", Price: 99900})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestDeleteUnknown(t *testing.T) {
	svc := newService(t, newFakeCatalogQueries(t), nil)
	err := svc.Delete(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "kaju-katli-500g", catalog.Slugify("  Kaju Katli (500g) "))
}
