package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/filmorate/backend/internal/models"
)

// Snapshot is a point-in-time copy of a MemoryStore.
type Snapshot struct {
	LastFilmID int64         `json:"lastFilmId"`
	LastUserID int64         `json:"lastUserId"`
	Films      []models.Film `json:"films"`
	Users      []models.User `json:"users"`
}

type filmRecord struct {
	film  models.Film
	likes map[int64]struct{}
}

func (r *filmRecord) copy() models.Film {
	film := r.film
	film.Likes = sortedIDs(r.likes)
	return film
}

type userRecord struct {
	user    models.User
	friends map[int64]struct{}
}

func (r *userRecord) copy() models.User {
	user := r.user
	user.Friends = sortedIDs(r.friends)
	return user
}

// MemoryStore keeps films and users in process memory. A single lock covers
// both collections so that cascades, like/friend edges and the email
// uniqueness check are applied atomically.
type MemoryStore struct {
	mu         sync.RWMutex
	films      map[int64]*filmRecord
	users      map[int64]*userRecord
	lastFilmID int64
	lastUserID int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		films: make(map[int64]*filmRecord),
		users: make(map[int64]*userRecord),
	}
}

// Films returns the film repository view of the store.
func (s *MemoryStore) Films() *MemoryFilmRepository {
	return &MemoryFilmRepository{store: s}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{store: s}
}

// Export copies the full store state.
func (s *MemoryStore) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		LastFilmID: s.lastFilmID,
		LastUserID: s.lastUserID,
		Films:      make([]models.Film, 0, len(s.films)),
		Users:      make([]models.User, 0, len(s.users)),
	}
	for _, id := range sortedKeys(s.films) {
		snap.Films = append(snap.Films, s.films[id].copy())
	}
	for _, id := range sortedKeys(s.users) {
		snap.Users = append(snap.Users, s.users[id].copy())
	}
	return snap
}

// Import replaces the store state with snap. References to unknown users and
// self-friendships are dropped and friendships are made symmetric. Duplicate
// ids or emails reject the whole snapshot. Id counters never move backwards
// past an imported id.
func (s *MemoryStore) Import(snap Snapshot) error {
	films := make(map[int64]*filmRecord, len(snap.Films))
	users := make(map[int64]*userRecord, len(snap.Users))
	emails := make(map[string]int64, len(snap.Users))
	lastFilmID, lastUserID := snap.LastFilmID, snap.LastUserID

	for _, user := range snap.Users {
		if user.ID <= 0 {
			return fmt.Errorf("import user: invalid id %d", user.ID)
		}
		if _, dup := users[user.ID]; dup {
			return fmt.Errorf("import user: duplicate id %d", user.ID)
		}
		if owner, dup := emails[user.Email]; dup {
			return fmt.Errorf("import user %d: email %q already used by user %d: %w", user.ID, user.Email, owner, ErrConflict)
		}
		emails[user.Email] = user.ID
		users[user.ID] = &userRecord{user: user, friends: make(map[int64]struct{})}
		lastUserID = max(lastUserID, user.ID)
	}
	for _, user := range snap.Users {
		for _, friendID := range user.Friends {
			friend, ok := users[friendID]
			if !ok || friendID == user.ID {
				continue
			}
			users[user.ID].friends[friendID] = struct{}{}
			friend.friends[user.ID] = struct{}{}
		}
	}

	for _, film := range snap.Films {
		if film.ID <= 0 {
			return fmt.Errorf("import film: invalid id %d", film.ID)
		}
		if _, dup := films[film.ID]; dup {
			return fmt.Errorf("import film: duplicate id %d", film.ID)
		}
		record := &filmRecord{film: film, likes: make(map[int64]struct{})}
		for _, userID := range film.Likes {
			if _, ok := users[userID]; ok {
				record.likes[userID] = struct{}{}
			}
		}
		films[film.ID] = record
		lastFilmID = max(lastFilmID, film.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.films = films
	s.users = users
	s.lastFilmID = lastFilmID
	s.lastUserID = lastUserID
	return nil
}

// MemoryFilmRepository implements FilmRepository on a MemoryStore.
type MemoryFilmRepository struct {
	store *MemoryStore
}

// Create assigns the next film id and stores the film with an empty like-set.
func (r *MemoryFilmRepository) Create(_ context.Context, film models.Film) (models.Film, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFilmID++
	film.ID = s.lastFilmID
	record := &filmRecord{film: film, likes: make(map[int64]struct{})}
	s.films[film.ID] = record
	return record.copy(), nil
}

// Update applies mutate to a copy of the stored film under the write lock and
// stores the result, keeping the id and like-set.
func (r *MemoryFilmRepository) Update(_ context.Context, id int64, mutate func(*models.Film) error) (models.Film, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.films[id]
	if !ok {
		return models.Film{}, fmt.Errorf("film %d: %w", id, ErrNotFound)
	}
	film := record.copy()
	if err := mutate(&film); err != nil {
		return models.Film{}, err
	}
	film.ID = id
	film.Likes = nil
	record.film = film
	return record.copy(), nil
}

// Delete removes the film together with its like-set.
func (r *MemoryFilmRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.films[id]; !ok {
		return fmt.Errorf("film %d: %w", id, ErrNotFound)
	}
	delete(s.films, id)
	return nil
}

// FindByID returns the film or ErrNotFound.
func (r *MemoryFilmRepository) FindByID(_ context.Context, id int64) (models.Film, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.films[id]
	if !ok {
		return models.Film{}, fmt.Errorf("film %d: %w", id, ErrNotFound)
	}
	return record.copy(), nil
}

// List returns all films in ascending id order.
func (r *MemoryFilmRepository) List(_ context.Context) ([]models.Film, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	films := make([]models.Film, 0, len(s.films))
	for _, id := range sortedKeys(s.films) {
		films = append(films, s.films[id].copy())
	}
	return films, nil
}

// AddLike records that userID likes filmID. Repeated likes are no-ops.
func (r *MemoryFilmRepository) AddLike(_ context.Context, filmID, userID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.likeTargetLocked(filmID, userID)
	if err != nil {
		return err
	}
	record.likes[userID] = struct{}{}
	return nil
}

// RemoveLike withdraws a like. Removing an absent like is a no-op.
func (r *MemoryFilmRepository) RemoveLike(_ context.Context, filmID, userID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.likeTargetLocked(filmID, userID)
	if err != nil {
		return err
	}
	delete(record.likes, userID)
	return nil
}

// Popular ranks films by like count, ties broken by ascending id.
func (r *MemoryFilmRepository) Popular(_ context.Context, count int) ([]models.Film, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*filmRecord, 0, len(s.films))
	for _, record := range s.films {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		li, lj := len(records[i].likes), len(records[j].likes)
		if li != lj {
			return li > lj
		}
		return records[i].film.ID < records[j].film.ID
	})

	if count >= 0 && count < len(records) {
		records = records[:count]
	}

	films := make([]models.Film, 0, len(records))
	for _, record := range records {
		films = append(films, record.copy())
	}
	return films, nil
}

func (s *MemoryStore) likeTargetLocked(filmID, userID int64) (*filmRecord, error) {
	record, ok := s.films[filmID]
	if !ok {
		return nil, fmt.Errorf("film %d: %w", filmID, ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return record, nil
}

// MemoryUserRepository implements UserRepository on a MemoryStore.
type MemoryUserRepository struct {
	store *MemoryStore
}

// Create assigns the next user id. It fails with ErrConflict when the email is taken.
func (r *MemoryUserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTakenLocked(user.Email, 0) {
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, ErrConflict)
	}

	s.lastUserID++
	user.ID = s.lastUserID
	record := &userRecord{user: user, friends: make(map[int64]struct{})}
	s.users[user.ID] = record
	return record.copy(), nil
}

// Update applies mutate to a copy of the stored user under the write lock and
// stores the result, keeping the id and friendships. It fails with ErrConflict
// when a different user already holds the resulting email.
func (r *MemoryUserRepository) Update(_ context.Context, id int64, mutate func(*models.User) error) (models.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	user := record.copy()
	if err := mutate(&user); err != nil {
		return models.User{}, err
	}
	if s.emailTakenLocked(user.Email, id) {
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, ErrConflict)
	}
	user.ID = id
	user.Friends = nil
	record.user = user
	return record.copy(), nil
}

// Delete removes the user and every friendship edge and like that references it.
func (r *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	for friendID := range record.friends {
		if friend, ok := s.users[friendID]; ok {
			delete(friend.friends, id)
		}
	}
	for _, film := range s.films {
		delete(film.likes, id)
	}
	delete(s.users, id)
	return nil
}

// FindByID returns the user or ErrNotFound.
func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return record.copy(), nil
}

// List returns all users in ascending id order.
func (r *MemoryUserRepository) List(_ context.Context) ([]models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, id := range sortedKeys(s.users) {
		users = append(users, s.users[id].copy())
	}
	return users, nil
}

// AddFriend links both users. Existing edges are left as they are.
func (r *MemoryUserRepository) AddFriend(_ context.Context, userID, friendID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, friend, err := s.pairLocked(userID, friendID)
	if err != nil {
		return err
	}
	user.friends[friendID] = struct{}{}
	friend.friends[userID] = struct{}{}
	return nil
}

// RemoveFriend unlinks both users. Missing edges are ignored.
func (r *MemoryUserRepository) RemoveFriend(_ context.Context, userID, friendID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, friend, err := s.pairLocked(userID, friendID)
	if err != nil {
		return err
	}
	delete(user.friends, friendID)
	delete(friend.friends, userID)
	return nil
}

// ListFriends resolves the user's friend-set in ascending id order.
func (r *MemoryUserRepository) ListFriends(_ context.Context, userID int64) ([]models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return s.resolveLocked(sortedIDs(record.friends)), nil
}

// CommonFriends resolves the intersection of two friend-sets in ascending id order.
func (r *MemoryUserRepository) CommonFriends(_ context.Context, userID, otherID int64) ([]models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, other, err := s.pairLocked(userID, otherID)
	if err != nil {
		return nil, err
	}

	common := make([]int64, 0)
	for id := range user.friends {
		if _, ok := other.friends[id]; ok {
			common = append(common, id)
		}
	}
	slices.Sort(common)
	return s.resolveLocked(common), nil
}

func (s *MemoryStore) pairLocked(userID, otherID int64) (*userRecord, *userRecord, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	other, ok := s.users[otherID]
	if !ok {
		return nil, nil, fmt.Errorf("user %d: %w", otherID, ErrNotFound)
	}
	return user, other, nil
}

// resolveLocked maps ids to users, skipping ids that no longer resolve.
func (s *MemoryStore) resolveLocked(ids []int64) []models.User {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.users[id]; ok {
			users = append(users, record.copy())
		}
	}
	return users
}

func (s *MemoryStore) emailTakenLocked(email string, exceptID int64) bool {
	for id, record := range s.users {
		if id != exceptID && record.user.Email == email {
			return true
		}
	}
	return false
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	return keys
}

var _ FilmRepository = (*MemoryFilmRepository)(nil)
var _ UserRepository = (*MemoryUserRepository)(nil)
