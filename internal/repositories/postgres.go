package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filmorate/backend/internal/db"
	"github.com/filmorate/backend/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// mapPgError translates constraint violations into repository sentinels.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return err
}

func nullableDate(d models.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}

// PostgresFilmRepository provides PostgreSQL-backed persistence for films.
type PostgresFilmRepository struct {
	pool db.Pool
}

// NewPostgresFilmRepository constructs a film repository backed by PostgreSQL.
func NewPostgresFilmRepository(pool db.Pool) *PostgresFilmRepository {
	return &PostgresFilmRepository{pool: pool}
}

const filmColumns = `id, name, description, release_date, duration, mpa`

func scanFilm(row scanner) (models.Film, error) {
	var (
		film    models.Film
		release time.Time
	)
	if err := row.Scan(&film.ID, &film.Name, &film.Description, &release, &film.Duration, &film.MPA); err != nil {
		return models.Film{}, err
	}
	film.ReleaseDate = models.DateOf(release)
	film.Likes = []int64{}
	return film, nil
}

// Create inserts the film and returns it with its sequence-assigned id.
func (r *PostgresFilmRepository) Create(ctx context.Context, film models.Film) (models.Film, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Film{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO films (name, description, release_date, duration, mpa)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+filmColumns,
		film.Name, film.Description, film.ReleaseDate.Time(), film.Duration, film.MPA)

	created, err := scanFilm(row)
	if err != nil {
		return models.Film{}, fmt.Errorf("insert film: %w", err)
	}
	return created, nil
}

// Update locks the film row with SELECT ... FOR UPDATE, applies mutate and
// writes the result back in the same transaction.
func (r *PostgresFilmRepository) Update(ctx context.Context, id int64, mutate func(*models.Film) error) (models.Film, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Film{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var updated models.Film
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		film, err := scanFilm(tx.QueryRow(ctx, `SELECT `+filmColumns+` FROM films WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("film %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("select film: %w", err)
		}
		if err := mutate(&film); err != nil {
			return err
		}

		updated, err = scanFilm(tx.QueryRow(ctx, `
            UPDATE films
            SET name = $2, description = $3, release_date = $4, duration = $5, mpa = $6
            WHERE id = $1
            RETURNING `+filmColumns,
			id, film.Name, film.Description, film.ReleaseDate.Time(), film.Duration, film.MPA))
		if err != nil {
			return fmt.Errorf("update film: %w", err)
		}

		films := []models.Film{updated}
		if err := loadLikes(ctx, tx, films); err != nil {
			return err
		}
		updated = films[0]
		return nil
	})
	if err != nil {
		return models.Film{}, err
	}
	return updated, nil
}

// Delete removes the film; its likes go with it through ON DELETE CASCADE.
func (r *PostgresFilmRepository) Delete(ctx context.Context, id int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM films WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete film: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("film %d: %w", id, ErrNotFound)
	}
	return nil
}

// FindByID fetches a film with its like-set.
func (r *PostgresFilmRepository) FindByID(ctx context.Context, id int64) (models.Film, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Film{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	film, err := scanFilm(conn.QueryRow(ctx, `SELECT `+filmColumns+` FROM films WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Film{}, fmt.Errorf("film %d: %w", id, ErrNotFound)
		}
		return models.Film{}, fmt.Errorf("select film: %w", err)
	}

	films := []models.Film{film}
	if err := loadLikes(ctx, conn, films); err != nil {
		return models.Film{}, err
	}
	return films[0], nil
}

// List returns every film in ascending id order.
func (r *PostgresFilmRepository) List(ctx context.Context) ([]models.Film, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	films, err := queryFilms(ctx, conn, `SELECT `+filmColumns+` FROM films ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if err := loadLikes(ctx, conn, films); err != nil {
		return nil, err
	}
	return films, nil
}

// AddLike records a like; repeating it is a no-op.
func (r *PostgresFilmRepository) AddLike(ctx context.Context, filmID, userID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO film_likes (film_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `, filmID, userID)
	if err != nil {
		if mapped := mapPgError(err); errors.Is(mapped, ErrNotFound) {
			return fmt.Errorf("film %d or user %d: %w", filmID, userID, ErrNotFound)
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// RemoveLike withdraws a like; removing an absent like is a no-op.
func (r *PostgresFilmRepository) RemoveLike(ctx context.Context, filmID, userID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureExists(ctx, conn, "films", filmID); err != nil {
		return err
	}
	if err := ensureExists(ctx, conn, "users", userID); err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, `DELETE FROM film_likes WHERE film_id = $1 AND user_id = $2`, filmID, userID); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// Popular ranks films by like count, ties broken by ascending id.
func (r *PostgresFilmRepository) Popular(ctx context.Context, count int) ([]models.Film, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	films, err := queryFilms(ctx, conn, `
        SELECT f.id, f.name, f.description, f.release_date, f.duration, f.mpa
        FROM films f
        LEFT JOIN film_likes l ON l.film_id = f.id
        GROUP BY f.id, f.name, f.description, f.release_date, f.duration, f.mpa
        ORDER BY COUNT(l.user_id) DESC, f.id ASC
        LIMIT $1
    `, count)
	if err != nil {
		return nil, err
	}
	if err := loadLikes(ctx, conn, films); err != nil {
		return nil, err
	}
	return films, nil
}

func queryFilms(ctx context.Context, q querier, sql string, args ...any) ([]models.Film, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query films: %w", err)
	}
	defer rows.Close()

	films := make([]models.Film, 0)
	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan film: %w", err)
		}
		films = append(films, film)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate films: %w", err)
	}
	return films, nil
}

// loadLikes fills the like-sets of films in a single query.
func loadLikes(ctx context.Context, q querier, films []models.Film) error {
	if len(films) == 0 {
		return nil
	}

	index := make(map[int64]int, len(films))
	ids := make([]int64, 0, len(films))
	for i, film := range films {
		index[film.ID] = i
		ids = append(ids, film.ID)
	}

	rows, err := q.Query(ctx, `
        SELECT film_id, user_id
        FROM film_likes
        WHERE film_id = ANY($1)
        ORDER BY film_id, user_id
    `, ids)
	if err != nil {
		return fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var filmID, userID int64
		if err := rows.Scan(&filmID, &userID); err != nil {
			return fmt.Errorf("scan like: %w", err)
		}
		i := index[filmID]
		films[i].Likes = append(films[i].Likes, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate likes: %w", err)
	}
	return nil
}

// ensureExists returns ErrNotFound when table has no row with the given id.
// table is always a package constant.
func ensureExists(ctx context.Context, q querier, table string, id int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %d: %w", table, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users and friendships.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, login, name, birthday`

func scanUser(row scanner) (models.User, error) {
	var (
		user     models.User
		birthday *time.Time
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Login, &user.Name, &birthday); err != nil {
		return models.User{}, err
	}
	if birthday != nil {
		user.Birthday = models.DateOf(*birthday)
	}
	user.Friends = []int64{}
	return user, nil
}

// Create inserts the user. A taken email yields ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO users (email, login, name, birthday)
        VALUES ($1, $2, $3, $4)
        RETURNING `+userColumns,
		user.Email, user.Login, user.Name, nullableDate(user.Birthday))

	created, err := scanUser(row)
	if err != nil {
		if errors.Is(mapPgError(err), ErrConflict) {
			return models.User{}, fmt.Errorf("email %q: %w", user.Email, ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// Update locks the user row with SELECT ... FOR UPDATE, applies mutate and
// writes the result back in the same transaction. A taken email yields
// ErrConflict.
func (r *PostgresUserRepository) Update(ctx context.Context, id int64, mutate func(*models.User) error) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var updated models.User
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("user %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("select user: %w", err)
		}
		if err := mutate(&user); err != nil {
			return err
		}

		updated, err = scanUser(tx.QueryRow(ctx, `
            UPDATE users
            SET email = $2, login = $3, name = $4, birthday = $5
            WHERE id = $1
            RETURNING `+userColumns,
			id, user.Email, user.Login, user.Name, nullableDate(user.Birthday)))
		if err != nil {
			if errors.Is(mapPgError(err), ErrConflict) {
				return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
			}
			return fmt.Errorf("update user: %w", err)
		}

		users := []models.User{updated}
		if err := loadFriends(ctx, tx, users); err != nil {
			return err
		}
		updated = users[0]
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// Delete removes the user; friendships and likes cascade.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// FindByID fetches a user with its friend-set.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	users := []models.User{user}
	if err := loadFriends(ctx, conn, users); err != nil {
		return models.User{}, err
	}
	return users[0], nil
}

// List returns every user in ascending id order.
func (r *PostgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return queryUsers(ctx, conn, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

// AddFriend inserts both directions of the edge in one transaction.
func (r *PostgresUserRepository) AddFriend(ctx context.Context, userID, friendID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		const insert = `INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, insert, userID, friendID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insert, friendID, userID)
		return err
	})
	if err != nil {
		if errors.Is(mapPgError(err), ErrNotFound) {
			return fmt.Errorf("user %d or %d: %w", userID, friendID, ErrNotFound)
		}
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// RemoveFriend deletes both directions of the edge; a missing edge is a no-op.
func (r *PostgresUserRepository) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureExists(ctx, conn, "users", userID); err != nil {
		return err
	}
	if err := ensureExists(ctx, conn, "users", friendID); err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            DELETE FROM friendships
            WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
        `, userID, friendID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

// ListFriends returns the user's friends in ascending id order.
func (r *PostgresUserRepository) ListFriends(ctx context.Context, userID int64) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureExists(ctx, conn, "users", userID); err != nil {
		return nil, err
	}

	return queryUsers(ctx, conn, `
        SELECT u.id, u.email, u.login, u.name, u.birthday
        FROM friendships f
        JOIN users u ON u.id = f.friend_id
        WHERE f.user_id = $1
        ORDER BY u.id
    `, userID)
}

// CommonFriends returns users present in both friend-sets, in ascending id order.
func (r *PostgresUserRepository) CommonFriends(ctx context.Context, userID, otherID int64) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureExists(ctx, conn, "users", userID); err != nil {
		return nil, err
	}
	if err := ensureExists(ctx, conn, "users", otherID); err != nil {
		return nil, err
	}

	return queryUsers(ctx, conn, `
        SELECT u.id, u.email, u.login, u.name, u.birthday
        FROM users u
        WHERE u.id IN (SELECT friend_id FROM friendships WHERE user_id = $1)
          AND u.id IN (SELECT friend_id FROM friendships WHERE user_id = $2)
        ORDER BY u.id
    `, userID, otherID)
}

func queryUsers(ctx context.Context, q querier, sql string, args ...any) ([]models.User, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	if err := loadFriends(ctx, q, users); err != nil {
		return nil, err
	}
	return users, nil
}

// loadFriends fills the friend-sets of users in a single query.
func loadFriends(ctx context.Context, q querier, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	index := make(map[int64]int, len(users))
	ids := make([]int64, 0, len(users))
	for i, user := range users {
		index[user.ID] = i
		ids = append(ids, user.ID)
	}

	rows, err := q.Query(ctx, `
        SELECT user_id, friend_id
        FROM friendships
        WHERE user_id = ANY($1)
        ORDER BY user_id, friend_id
    `, ids)
	if err != nil {
		return fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, friendID int64
		if err := rows.Scan(&userID, &friendID); err != nil {
			return fmt.Errorf("scan friendship: %w", err)
		}
		i := index[userID]
		users[i].Friends = append(users[i].Friends, friendID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate friendships: %w", err)
	}
	return nil
}

var _ FilmRepository = (*PostgresFilmRepository)(nil)
var _ UserRepository = (*PostgresUserRepository)(nil)
