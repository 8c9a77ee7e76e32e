package models

// MPA ratings accepted for films. An empty rating means the film is unrated.
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG-13"
	RatingR    = "R"
	RatingNC17 = "NC-17"
)

// Film is a catalogue entry that users can like.
type Film struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name" validate:"notblank"`
	Description string  `json:"description" validate:"max=200"`
	ReleaseDate Date    `json:"releaseDate" validate:"releasedate"`
	Duration    int     `json:"duration" validate:"gt=0"`
	MPA         string  `json:"mpa,omitempty" validate:"omitempty,oneof=G PG PG-13 R NC-17"`
	Likes       []int64 `json:"likes"`
}

// LikeCount returns the size of the film's like-set.
func (f Film) LikeCount() int {
	return len(f.Likes)
}

// User is a registered member of the service.
type User struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email" validate:"notblank,contains=@"`
	Login    string  `json:"login" validate:"notblank,nowhitespace"`
	Name     string  `json:"name"`
	Birthday Date    `json:"birthday" validate:"notfuture"`
	Friends  []int64 `json:"friends"`
}

// FilmPatch is the payload of film create and update requests.
type FilmPatch struct {
	ID          Optional[int64]  `json:"id"`
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	ReleaseDate Optional[Date]   `json:"releaseDate"`
	Duration    Optional[int]    `json:"duration"`
	MPA         Optional[string] `json:"mpa"`
}

// Apply merges the supplied fields into f. The id and likes are never touched.
func (p FilmPatch) Apply(f *Film) {
	p.Name.ApplyTo(&f.Name)
	p.Description.ApplyTo(&f.Description)
	p.ReleaseDate.ApplyTo(&f.ReleaseDate)
	p.Duration.ApplyTo(&f.Duration)
	p.MPA.ApplyTo(&f.MPA)
}

// UserPatch is the payload of user create and update requests.
type UserPatch struct {
	ID       Optional[int64]  `json:"id"`
	Email    Optional[string] `json:"email"`
	Login    Optional[string] `json:"login"`
	Name     Optional[string] `json:"name"`
	Birthday Optional[Date]   `json:"birthday"`
}

// Apply merges the supplied fields into u. The id and friends are never touched.
func (p UserPatch) Apply(u *User) {
	p.Email.ApplyTo(&u.Email)
	p.Login.ApplyTo(&u.Login)
	p.Name.ApplyTo(&u.Name)
	p.Birthday.ApplyTo(&u.Birthday)
}
