package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/microblog/internal/domain"
	"github.com/weiawesome/microblog/internal/pagination"
	"github.com/weiawesome/microblog/internal/testdb"
	"github.com/weiawesome/microblog/pkg/database"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	users    *GormUserRepository
	posts    *GormPostRepository
	messages *GormMessageRepository
	follows  *GormFollowRepository
}

func newFixture(t *testing.T) *fixture {
	db := testdb.New(t)
	return &fixture{
		db:       db,
		users:    NewGormUserRepository(db),
		posts:    NewGormPostRepository(db),
		messages: NewGormMessageRepository(db),
		follows:  NewGormFollowRepository(db),
	}
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		LastSeen:     epoch,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func (f *fixture) post(t *testing.T, author *domain.User, body string, at time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{UserID: author.ID, Body: body, Timestamp: at}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func all[T any](t *testing.T, c pagination.Collection[T]) []T {
	t.Helper()
	ctx := context.Background()
	n, err := c.Count(ctx)
	require.NoError(t, err)
	items, err := c.Slice(ctx, 0, int(n)+1)
	require.NoError(t, err)
	require.Len(t, items, int(n))
	return items
}

func bodies(posts []*domain.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Body)
	}
	return out
}

func usernames(users []*domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestUserRepository_Lookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	got, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = f.users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.users.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	err := f.users.Create(context.Background(), &domain.User{
		Username: "alice", Email: "other@example.com", PasswordHash: "h", LastSeen: epoch,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsernameExists) || errors.Is(err, ErrUserConflict), "got %v", err)
}

func TestUserRepository_Taken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	taken, err := f.users.UsernameTaken(ctx, "alice", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = f.users.UsernameTaken(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a user's own name is not taken from itself")

	taken, err = f.users.EmailTaken(ctx, "nobody@example.com", 0)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_TokenRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	token := "tok"
	exp := epoch.Add(time.Hour)
	alice.Token = &token
	alice.TokenExpiration = &exp
	require.NoError(t, f.users.SaveToken(ctx, alice))

	got, err := f.users.GetByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	require.NotNil(t, got.TokenExpiration)
	assert.True(t, exp.Equal(*got.TokenExpiration))

	err = f.users.SaveToken(ctx, &domain.User{ID: 404})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AllOrderedByID(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		f.user(t, name)
	}
	assert.Equal(t, []string{"carol", "alice", "bob"}, usernames(all(t, f.users.All())))
}

func TestFollowRepository_FollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	created, err := f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := f.follows.GetFollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, []string{"alice"}, usernames(all(t, f.follows.Followers(bob.ID))))
	assert.Empty(t, all(t, f.follows.Followers(alice.ID)), "edges are directed")
}

func TestFollowRepository_Unfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	removed, err := f.follows.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = f.follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	removed, err = f.follows.Unfollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Empty(t, all(t, f.follows.Followed(alice.ID)))
}

func TestFollowRepository_Lists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	for _, edge := range [][2]uint{{bob.ID, alice.ID}, {carol.ID, alice.ID}, {alice.ID, carol.ID}} {
		_, err := f.follows.Follow(ctx, edge[0], edge[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"bob", "carol"}, usernames(all(t, f.follows.Followers(alice.ID))))
	assert.Equal(t, []string{"carol"}, usernames(all(t, f.follows.Followed(alice.ID))))
	assert.Equal(t, []string{"alice"}, usernames(all(t, f.follows.Followed(bob.ID))))

	stats, err := f.users.Stats(ctx, []uint{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.UserStats{FollowerCount: 2, FollowedCount: 1}, stats[alice.ID])
	assert.Equal(t, domain.UserStats{FollowedCount: 1}, stats[bob.ID])
}

func TestPostRepository_FeedCoversSelfAndFollowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1, u2, u3, u4 := f.user(t, "u1"), f.user(t, "u2"), f.user(t, "u3"), f.user(t, "u4")

	f.post(t, u1, "post from u1", epoch.Add(4*time.Second))
	f.post(t, u2, "post from u2", epoch.Add(3*time.Second))
	f.post(t, u3, "post from u3", epoch.Add(1*time.Second))
	f.post(t, u4, "post from u4", epoch.Add(2*time.Second))

	for _, edge := range [][2]uint{{u1.ID, u2.ID}, {u1.ID, u4.ID}, {u2.ID, u3.ID}, {u3.ID, u4.ID}} {
		_, err := f.follows.Follow(ctx, edge[0], edge[1])
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"post from u1", "post from u2", "post from u4"}, bodies(all(t, f.posts.FollowedBy(u1.ID))))
	assert.Equal(t, []string{"post from u2", "post from u3"}, bodies(all(t, f.posts.FollowedBy(u2.ID))))
	assert.Equal(t, []string{"post from u4", "post from u3"}, bodies(all(t, f.posts.FollowedBy(u3.ID))))
	assert.Equal(t, []string{"post from u4"}, bodies(all(t, f.posts.FollowedBy(u4.ID))))
}

func TestPostRepository_OrderingTieBreak(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	for i := 0; i < 3; i++ {
		f.post(t, alice, fmt.Sprintf("p%d", i), epoch)
	}
	f.post(t, alice, "older", epoch.Add(-time.Minute))

	assert.Equal(t, []string{"p2", "p1", "p0", "older"}, bodies(all(t, f.posts.ByAuthor(alice.ID))))
	assert.Equal(t, []string{"p2", "p1", "p0", "older"}, bodies(all(t, f.posts.All())))
}

func TestPostRepository_ByAuthorPagesAreStable(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	for i := 0; i < 25; i++ {
		f.post(t, alice, fmt.Sprintf("p%02d", i), epoch.Add(time.Duration(i)*time.Second))
	}

	page, err := pagination.Paginate(context.Background(), f.posts.ByAuthor(alice.ID),
		pagination.Request{Page: 3, PerPage: 10, Route: pagination.NewRoute("/api/users/{id}/posts", "id", "1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"p04", "p03", "p02", "p01", "p00"}, bodies(page.Items))
	assert.Equal(t, 3, page.Meta.TotalPages)
}

func TestPostRepository_SearchAndGetByIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	a := f.post(t, alice, "Learning Go today", epoch)
	f.post(t, alice, "nothing here", epoch.Add(time.Second))
	c := f.post(t, alice, "go go go", epoch.Add(2*time.Second))
	f.post(t, alice, "100% sure", epoch.Add(3*time.Second))

	assert.Equal(t, []string{"go go go", "Learning Go today"}, bodies(all(t, f.posts.Search("go"))))
	assert.Equal(t, []string{"100% sure"}, bodies(all(t, f.posts.Search("%"))))

	got, err := f.posts.GetByIDs(ctx, []uint{c.ID, 999, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"go go go", "Learning Go today"}, bodies(got))
}

func TestMessageRepository_InboxAndUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.messages.Create(ctx, &domain.Message{
			SenderID: alice.ID, RecipientID: bob.ID, Body: fmt.Sprintf("m%d", i),
			Timestamp: epoch.Add(time.Duration(i) * time.Second),
		}))
	}

	inbox := all(t, f.messages.ReceivedBy(bob.ID))
	require.Len(t, inbox, 3)
	assert.Equal(t, "m2", inbox[0].Body)
	assert.Empty(t, all(t, f.messages.ReceivedBy(alice.ID)))

	n, err := f.messages.CountReceivedSince(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	since := epoch
	n, err = f.messages.CountReceivedSince(ctx, bob.ID, &since)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRepositories_JoinTransaction(t *testing.T) {
	f := newFixture(t)
	tx := database.NewTxManager(f.db)
	alice := f.user(t, "alice")

	boom := errors.New("boom")
	err := tx.WithTx(context.Background(), func(ctx context.Context) error {
		p := &domain.Post{UserID: alice.ID, Body: "inside", Timestamp: epoch}
		if err := f.posts.Create(ctx, p); err != nil {
			return err
		}
		n, err := f.posts.ByAuthor(alice.ID).Count(ctx)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("post not visible inside transaction: %d", n)
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := f.posts.ByAuthor(alice.ID).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "rolled back post must not persist")
}
