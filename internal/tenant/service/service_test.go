package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeRepo struct {
	lookups  int
	channels map[string]*domain.Channel
}

func (f *fakeRepo) Create(ctx context.Context, db *gorm.DB, channel *domain.Channel) error {
	f.channels[channel.PhoneNumberID] = channel
	return nil
}

func (f *fakeRepo) FindByPhoneNumberID(ctx context.Context, db *gorm.DB, phoneNumberID string) (*domain.Channel, error) {
	f.lookups++
	return f.channels[phoneNumberID], nil
}

func (f *fakeRepo) FindUnlinked(ctx context.Context, db *gorm.DB, phoneNumberID string) (*domain.Channel, error) {
	return nil, nil
}

func (f *fakeRepo) LinkBusiness(ctx context.Context, db *gorm.DB, phoneNumberID string, businessID snowflake.ID) error {
	c, ok := f.channels[phoneNumberID]
	if !ok {
		return domain.ErrChannelNotFound
	}
	c.BusinessID = &businessID
	return nil
}

func newResolver(repo domain.Repository) domain.Resolver {
	return New(ServiceParam{Log: zap.NewNop(), Repo: repo})
}

func TestResolveCachesWithinTTL(t *testing.T) {
	repo := &fakeRepo{channels: map[string]*domain.Channel{
		"111": {ID: 1, PhoneNumberID: "111", AccessToken: "tok"},
	}}
	resolver := newResolver(repo)

	for i := 0; i < 3; i++ {
		channel, found, err := resolver.Resolve(context.Background(), "111")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "tok", channel.AccessToken)
	}
	assert.Equal(t, 1, repo.lookups)
}

func TestResolveAbsenceIsNotAnError(t *testing.T) {
	repo := &fakeRepo{channels: map[string]*domain.Channel{}}
	resolver := newResolver(repo)

	_, found, err := resolver.Resolve(context.Background(), "999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLinkInvalidatesCache(t *testing.T) {
	repo := &fakeRepo{channels: map[string]*domain.Channel{
		"111": {ID: 1, PhoneNumberID: "111", AccessToken: "tok"},
	}}
	resolver := newResolver(repo)

	_, _, err := resolver.Resolve(context.Background(), "111")
	require.NoError(t, err)
	require.Equal(t, 1, repo.lookups)

	require.NoError(t, resolver.Link(context.Background(), "111", snowflake.ID(42)))

	channel, found, err := resolver.Resolve(context.Background(), "111")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, channel.BusinessID)
	assert.Equal(t, snowflake.ID(42), *channel.BusinessID)
	assert.Equal(t, 2, repo.lookups)
}
