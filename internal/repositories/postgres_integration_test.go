package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filmorate/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresFilmRepository_CreateUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresFilmRepository(testPool)

	first, err := repo.Create(ctx, models.Film{
		Name:        "Metropolis",
		Description: "A futuristic city divided by class.",
		ReleaseDate: models.NewDate(1927, time.January, 10),
		Duration:    153,
		MPA:         models.RatingPG,
	})
	if err != nil {
		t.Fatalf("create film: %v", err)
	}
	if first.ID == 0 || first.Likes == nil {
		t.Fatalf("expected assigned id and empty likes, got %+v", first)
	}

	second, err := repo.Create(ctx, models.Film{
		Name:        "Nosferatu",
		ReleaseDate: models.NewDate(1922, time.March, 4),
		Duration:    94,
	})
	if err != nil {
		t.Fatalf("create second film: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	first.Duration = 148
	updated, err := repo.Update(ctx, first.ID, replaceFilm(first))
	if err != nil {
		t.Fatalf("update film: %v", err)
	}
	if updated.Duration != 148 || updated.ReleaseDate != models.NewDate(1927, time.January, 10) {
		t.Fatalf("expected updated fields to persist, got %+v", updated)
	}

	if _, err := repo.Update(ctx, second.ID+100, replaceFilm(models.Film{Name: "Ghost", ReleaseDate: models.NewDate(2000, time.January, 1), Duration: 1})); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing film, got %v", err)
	}

	abort := errors.New("abort")
	_, err = repo.Update(ctx, first.ID, func(film *models.Film) error {
		film.Duration = 1
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected mutate error to be returned, got %v", err)
	}
	stored, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find film: %v", err)
	}
	if stored.Duration != 148 {
		t.Fatalf("expected aborted update to roll back, got duration %d", stored.Duration)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete film: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	third, err := repo.Create(ctx, models.Film{Name: "Sunrise", ReleaseDate: models.NewDate(1927, time.September, 23), Duration: 94})
	if err != nil {
		t.Fatalf("create third film: %v", err)
	}
	if third.ID <= second.ID {
		t.Fatalf("expected ids never to be reused, got %d after %d", third.ID, second.ID)
	}

	films, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list films: %v", err)
	}
	if len(films) != 2 || films[0].ID != second.ID || films[1].ID != third.ID {
		t.Fatalf("unexpected films listed: %+v", films)
	}
}

func TestPostgresUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, repo, "alice")
	bob := createTestUser(t, repo, "bob")

	dup := models.User{Email: alice.Email, Login: "mallory", Name: "mallory"}
	if _, err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	bob.Email = alice.Email
	if _, err := repo.Update(ctx, bob.ID, replaceUser(bob)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict updating to a taken email, got %v", err)
	}

	stored, err := repo.FindByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("find bob: %v", err)
	}
	if stored.Email != "bob@example.com" {
		t.Fatalf("expected bob's email unchanged, got %q", stored.Email)
	}
	if !stored.Birthday.IsZero() {
		t.Fatalf("expected null birthday to round-trip, got %v", stored.Birthday)
	}
}

func TestPostgresUserRepository_FriendsAndCascade(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	films := NewPostgresFilmRepository(testPool)

	a := createTestUser(t, users, "a")
	b := createTestUser(t, users, "b")
	c := createTestUser(t, users, "c")

	if err := users.AddFriend(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := users.AddFriend(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := users.AddFriend(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("repeat add friend: %v", err)
	}
	if err := users.AddFriend(ctx, a.ID, c.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound befriending missing user, got %v", err)
	}

	friends, err := users.ListFriends(ctx, c.ID)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(friends) != 2 || friends[0].ID != a.ID || friends[1].ID != b.ID {
		t.Fatalf("unexpected friends of c: %+v", friends)
	}

	common, err := users.CommonFriends(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("common friends: %v", err)
	}
	if len(common) != 1 || common[0].ID != c.ID {
		t.Fatalf("expected c as the only common friend, got %+v", common)
	}

	film, err := films.Create(ctx, models.Film{Name: "Film", ReleaseDate: models.NewDate(2000, time.January, 1), Duration: 90})
	if err != nil {
		t.Fatalf("create film: %v", err)
	}
	if err := films.AddLike(ctx, film.ID, c.ID); err != nil {
		t.Fatalf("add like: %v", err)
	}

	if err := users.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	stored, err := users.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("find a: %v", err)
	}
	if len(stored.Friends) != 0 {
		t.Fatalf("expected friendships to cascade, got %v", stored.Friends)
	}

	liked, err := films.FindByID(ctx, film.ID)
	if err != nil {
		t.Fatalf("find film: %v", err)
	}
	if len(liked.Likes) != 0 {
		t.Fatalf("expected likes to cascade, got %v", liked.Likes)
	}
}

func TestPostgresFilmRepository_Popular(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	films := NewPostgresFilmRepository(testPool)

	var filmIDs []int64
	for i := 0; i < 3; i++ {
		film, err := films.Create(ctx, models.Film{
			Name:        fmt.Sprintf("Film %d", i),
			ReleaseDate: models.NewDate(2000, time.January, 1),
			Duration:    90,
		})
		if err != nil {
			t.Fatalf("create film: %v", err)
		}
		filmIDs = append(filmIDs, film.ID)
	}
	u1 := createTestUser(t, users, "u1")
	u2 := createTestUser(t, users, "u2")

	for _, like := range []struct{ film, user int64 }{
		{filmIDs[2], u1.ID},
		{filmIDs[2], u2.ID},
		{filmIDs[1], u1.ID},
		{filmIDs[1], u1.ID},
	} {
		if err := films.AddLike(ctx, like.film, like.user); err != nil {
			t.Fatalf("add like: %v", err)
		}
	}

	popular, err := films.Popular(ctx, 10)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(popular) != 3 {
		t.Fatalf("expected 3 films, got %d", len(popular))
	}
	want := []int64{filmIDs[2], filmIDs[1], filmIDs[0]}
	for i, film := range popular {
		if film.ID != want[i] {
			t.Fatalf("expected order %v, got film %d at %d", want, film.ID, i)
		}
	}
	if len(popular[0].Likes) != 2 || len(popular[1].Likes) != 1 {
		t.Fatalf("unexpected like-sets: %+v", popular)
	}

	if err := films.RemoveLike(ctx, filmIDs[1], u2.ID); err != nil {
		t.Fatalf("remove absent like: %v", err)
	}
	if err := films.RemoveLike(ctx, filmIDs[1], u2.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}

	top, err := films.Popular(ctx, 1)
	if err != nil {
		t.Fatalf("popular with count: %v", err)
	}
	if len(top) != 1 || top[0].ID != filmIDs[2] {
		t.Fatalf("unexpected top film: %+v", top)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE film_likes, friendships, films, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, login string) models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), models.User{
		Email: login + "@example.com",
		Login: login,
		Name:  login,
	})
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}
