package services

import (
	"context"
	"testing"
	"time"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"
	"mechanical_shop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func addressInput(label string) AddressInput {
	return AddressInput{
		Label:       label,
		FullName:    "Tran Thi B",
		Phone:       "0912345678",
		AddressLine: "45 Tran Hung Dao",
		City:        "Da Nang",
	}
}

func defaults(t *testing.T, db *gorm.DB, userID string) []string {
	t.Helper()

	var ids []string
	require.NoError(t, db.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Pluck("id", &ids).Error)
	return ids
}

func TestAddressService_FirstAddressBecomesDefault(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(repository.NewStore(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "addr@example.com")

	first, err := svc.Create(ctx, user.ID, addressInput("home"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.Create(ctx, user.ID, addressInput("work"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := svc.Create(ctx, user.ID, AddressInput{
		Label: "shop", FullName: "C", Phone: "1", AddressLine: "x", City: "Hue", IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, third.IsDefault)
	assert.Equal(t, []string{third.ID}, defaults(t, db, user.ID))
}

func TestAddressService_Cap(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(repository.NewStore(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "addr@example.com")

	for i := 0; i < models.MaxAddressesPerUser; i++ {
		_, err := svc.Create(ctx, user.ID, addressInput("a"))
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, user.ID, addressInput("one too many"))
	assert.ErrorIs(t, err, ErrAddressLimitReached)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, models.MaxAddressesPerUser)
	assert.True(t, list[0].IsDefault)
}

func TestAddressService_SetDefault(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(repository.NewStore(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "addr@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")

	_, err := svc.Create(ctx, user.ID, addressInput("home"))
	require.NoError(t, err)
	work, err := svc.Create(ctx, user.ID, addressInput("work"))
	require.NoError(t, err)

	got, err := svc.SetDefault(ctx, user.ID, work.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, []string{work.ID}, defaults(t, db, user.ID))

	_, err = svc.SetDefault(ctx, other.ID, work.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestAddressService_DeleteDefaultPromotesEarliest(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(repository.NewStore(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "addr@example.com")

	home, err := svc.Create(ctx, user.ID, addressInput("home"))
	require.NoError(t, err)
	work, err := svc.Create(ctx, user.ID, addressInput("work"))
	require.NoError(t, err)
	shop, err := svc.Create(ctx, user.ID, addressInput("shop"))
	require.NoError(t, err)

	// distinct creation times regardless of clock resolution
	base := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Address{}).Where("id = ?", work.ID).UpdateColumn("created_at", base).Error)
	require.NoError(t, db.Model(&models.Address{}).Where("id = ?", shop.ID).UpdateColumn("created_at", base.Add(time.Minute)).Error)

	require.NoError(t, svc.Delete(ctx, user.ID, home.ID))
	assert.Equal(t, []string{work.ID}, defaults(t, db, user.ID))

	require.NoError(t, svc.Delete(ctx, user.ID, shop.ID))
	assert.Equal(t, []string{work.ID}, defaults(t, db, user.ID))

	require.NoError(t, svc.Delete(ctx, user.ID, work.ID))
	assert.Empty(t, defaults(t, db, user.ID))

	assert.ErrorIs(t, svc.Delete(ctx, user.ID, work.ID), ErrAddressNotFound)
}

func TestAddressService_UpdateKeepsSingleDefault(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAddressService(repository.NewStore(db))
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "addr@example.com")

	home, err := svc.Create(ctx, user.ID, addressInput("home"))
	require.NoError(t, err)
	work, err := svc.Create(ctx, user.ID, addressInput("work"))
	require.NoError(t, err)

	no := false
	city := "Hai Phong"
	got, err := svc.Update(ctx, user.ID, home.ID, AddressUpdate{City: &city, IsDefault: &no})
	require.NoError(t, err)
	assert.Equal(t, "Hai Phong", got.City)
	assert.True(t, got.IsDefault)

	yes := true
	_, err = svc.Update(ctx, user.ID, work.ID, AddressUpdate{IsDefault: &yes})
	require.NoError(t, err)
	assert.Equal(t, []string{work.ID}, defaults(t, db, user.ID))

	empty := ""
	_, err = svc.Update(ctx, user.ID, work.ID, AddressUpdate{Phone: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
